package bridge

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"time"
)

// Per-request timeout for all control API calls. The event stream uses a
// separate client without one.
const requestTimeout = 2 * time.Second

// Signify root certificate the bridge's HTTPS certificate chains to, see
// https://developers.meethue.com/develop/application-design-guidance/using-https/
const hueRootCA = `-----BEGIN CERTIFICATE-----
MIICMjCCAdigAwIBAgIUO7FSLbaxikuXAljzVaurLXWmFw4wCgYIKoZIzj0EAwIw
OTELMAkGA1UEBhMCTkwxFDASBgNVBAoMC1BoaWxpcHMgSHVlMRQwEgYDVQQDDAty
b290LWJyaWRnZTAiGA8yMDE3MDEwMTAwMDAwMFoYDzIwMzgwMTE5MDMxNDA3WjA5
MQswCQYDVQQGEwJOTDEUMBIGA1UECgwLUGhpbGlwcyBIdWUxFDASBgNVBAMMC3Jv
b3QtYnJpZGdlMFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEjNw2tx2AplOf9x86
aTdvEcL1FU65QDxziKvBpW9XXSIcibAeQiKxegpq8Exbr9v6LBnYbna2VcaK0G22
jOKkTqOBuTCBtjAPBgNVHRMBAf8EBTADAQH/MA4GA1UdDwEB/wQEAwIBhjAdBgNV
HQ4EFgQUZ2ONTFrDT6o8ItRnKfqWKnHFGmQwdAYDVR0jBG0wa4AUZ2ONTFrDT6o8
ItRnKfqWKnHFGmShPaQ7MDkxCzAJBgNVBAYTAk5MMRQwEgYDVQQKDAtQaGlsaXBz
IEh1ZTEUMBIGA1UEAwwLcm9vdC1icmlkZ2WCFDuxUi22sYpLlwJY81Wrqy11phcO
MAoGCCqGSM49BAMCA0gAMEUCIEBYYEOsa07TH7E5MJnGw557lVkORgit2Rm1h3B2
sFgDAiEA1Fj/C3AN5psFMjo0//mrQebo0eKd3aWRx+pQY08mk48=
-----END CERTIFICATE-----`

func newTransport() *http.Transport {
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM([]byte(hueRootCA))
	return &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs: pool,
			// Older bridges still present a self-signed certificate.
			InsecureSkipVerify: true,
		},
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: newTransport(),
		Timeout:   requestTimeout,
	}
}

// newStreamClient builds the client for /eventstream: the connection is
// long-lived, so it must not carry the per-request timeout.
func newStreamClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}
