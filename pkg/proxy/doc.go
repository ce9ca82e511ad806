// Package proxy forwards HTTP calls to third-party APIs with secret
// references in their headers replaced by real values.
//
// A caller sends its request to /api-proxy/?service=<name>&url=<target>.
// Any header value may contain references of the form secret://<key>; they
// are looked up in the named service's entry of the secrets file and
// substituted before the request leaves the proxy:
//
//	X-Api-Key: secret://apikey            ->  X-Api-Key: XYZ
//	Authorization: Basic c2VjcmV0Oi8vcHc= ->  Authorization: Basic <base64(pw)>
//
// # Architecture
//
//   - ParseRequest: query parameters and body into a types.Request
//   - Forwarder: snapshot lookup, header filtering, resolution, upstream call
//   - HeaderFilter: browser, caching and hop-by-hop headers are never sent
//   - NewHTTPClient: unified or split timeout policy, redirects not followed
//   - HandleError: error to JSON failure body
//
// # Error Handling
//
// Failures are returned as a flat JSON object:
//
//	{
//	  "detail": "Secret 'apikey' not found",
//	  "type": "unprocessable_entity",
//	  "code": "secret_not_found",
//	  "param": "apikey"
//	}
//
// An unknown service, a service without secrets and a missing key all fail
// before any byte is sent upstream. Upstream failures are reported as
// *UpstreamError, whose message never contains a substituted value.
//
// # Thread Safety
//
// A Forwarder is safe for concurrent use. Each call reads one immutable
// secrets snapshot, so a reload during the call cannot mix configurations.
package proxy
