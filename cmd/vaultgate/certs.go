package main

import (
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/vaultgate/pkg/cli"
	vgtls "mercator-hq/vaultgate/pkg/security/tls"
)

var certsFlags struct {
	certFile string
	keyFile  string
	caFile   string
	format   string
}

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Inspect the listener TLS certificate",
}

var certsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the TLS certificate and key",
	Long: `Load the listener certificate and key and check that they can be served.

The pair defaults to security.tls.cert_file and security.tls.key_file from the
configuration. The check fails when the key does not match the certificate,
when the certificate is outside its validity window, or when --ca is given
and the chain does not verify. Certificates with fewer than 30 days left are
reported with a warning.

Examples:
  # Check the configured pair
  vaultgate certs check

  # Check another pair against a CA bundle
  vaultgate certs check --cert server.crt --key server.key --ca ca.pem`,
	RunE: checkCertificate,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsCheckCmd)

	certsCheckCmd.Flags().StringVar(&certsFlags.certFile, "cert", "", "certificate file (default: security.tls.cert_file)")
	certsCheckCmd.Flags().StringVar(&certsFlags.keyFile, "key", "", "private key file (default: security.tls.key_file)")
	certsCheckCmd.Flags().StringVar(&certsFlags.caFile, "ca", "", "CA bundle to verify the chain against")
	certsCheckCmd.Flags().StringVar(&certsFlags.format, "format", "table", "output format: table, json, csv")
}

func checkCertificate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(certsFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	certFile, keyFile := cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile
	if certsFlags.certFile != "" {
		certFile = certsFlags.certFile
	}
	if certsFlags.keyFile != "" {
		keyFile = certsFlags.keyFile
	}
	if certFile == "" || keyFile == "" {
		return cli.NewConfigError("cert", "certificate and key are required (set --cert/--key or security.tls)")
	}

	_, leaf, err := vgtls.LoadKeyPair(certFile, keyFile)
	if err != nil {
		return cli.NewCommandError("certs check", fmt.Errorf("certificate and key do not load as a pair: %w", err))
	}

	now := time.Now()
	if err := vgtls.ValidateX509Certificate(leaf, now); err != nil {
		return cli.NewCommandError("certs check", err)
	}

	if certsFlags.caFile != "" {
		pool, err := loadCAPool(certsFlags.caFile)
		if err != nil {
			return err
		}
		if err := vgtls.ValidateCertificateChain(leaf, pool, now); err != nil {
			return cli.NewCommandError("certs check", err)
		}
	}

	info := vgtls.ExtractCertificateInfo(leaf)
	days, warning := vgtls.CheckCertificateExpiration(leaf, now)
	out := cmd.OutOrStdout()

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, struct {
			*vgtls.CertificateInfo
			ExpiresInDays int    `json:"expires_in_days"`
			Warning       string `json:"warning,omitempty"`
		}{info, days, warning})
	}

	if format != cli.FormatCSV {
		fmt.Fprintln(out, "✓ Certificate and key match")
		if certsFlags.caFile != "" {
			fmt.Fprintln(out, "✓ Certificate chain valid")
		}
		if warning != "" {
			fmt.Fprintf(out, "⚠ %s\n", warning)
		} else {
			fmt.Fprintf(out, "✓ Certificate valid until %s\n", leaf.NotAfter.Format("2006-01-02"))
		}
		fmt.Fprintln(out)
	}

	return cli.NewFormatter(format).FormatTo(out, certificateTable(info, days))
}

func certificateTable(info *vgtls.CertificateInfo, days int) *cli.Table {
	table := &cli.Table{Headers: []string{"field", "value"}}
	table.Append("subject", info.Subject)
	table.Append("issuer", info.Issuer)
	table.Append("serial", info.Serial)
	table.Append("not_before", info.NotBefore.UTC().Format(time.RFC3339))
	table.Append("not_after", info.NotAfter.UTC().Format(time.RFC3339))
	table.Append("expires_in_days", strconv.Itoa(days))
	if len(info.DNSNames) > 0 {
		table.Append("dns_names", strings.Join(info.DNSNames, ","))
	}
	if len(info.IPAddresses) > 0 {
		table.Append("ip_addresses", strings.Join(info.IPAddresses, ","))
	}
	return table
}

func loadCAPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in CA bundle %s", path)
	}
	return pool, nil
}
