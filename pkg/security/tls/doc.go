/*
Package tls serves the vaultgate listener certificate.

ServerConfig builds a crypto/tls configuration from config.TLSConfig. The
certificate itself comes from a CertificateReloader, which polls the
certificate and key files and swaps in a renewed pair without a restart:

	r := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.CertReloadInterval, logger)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	tc, err := tls.ServerConfig(cfg, r)
	if err != nil {
		return err
	}
	srv.TLSConfig = tc
	srv.ServeTLS(ln, "", "")

A pair that fails to load or has expired is rejected and the previous
certificate stays in use. Certificates with fewer than ExpiryWarningDays of
validity left are logged at warn level on every load.
*/
package tls
