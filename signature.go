package filevault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"
)

// SignatureVerifier verifies AWS Signature V4 presigned URLs.
type SignatureVerifier struct {
	Region          string
	Service         string
	AccessKeyLookup func(accessKey string) (secretKey string, found bool)
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewSignatureVerifier creates a new signature verifier.
//
// Parameters:
//   - region: AWS region (e.g., "us-east-1")
//   - service: AWS service name (e.g., "s3")
//   - lookup: Function to retrieve secret key by access key. Returns (secretKey, true) if found, ("", false) if not.
func NewSignatureVerifier(region, service string, lookup func(string) (string, bool)) *SignatureVerifier {
	return &SignatureVerifier{
		Region:          region,
		Service:         service,
		AccessKeyLookup: lookup,
	}
}

// Verify checks a presigned blob URL. query is the full request query and
// headers are the request headers; every header named in X-Amz-SignedHeaders
// must match what was signed. Failures wrap ErrUnauthorized.
//
// Checks run cheapest first: parameter presence and format, expiry, the
// credential scope against the verifier's region and service, the access key,
// and finally the HMAC.
func (v *SignatureVerifier) Verify(method, path string, query url.Values, headers http.Header) error {
	p, err := v.parse(query)
	if err != nil {
		return err
	}

	secretKey, found := v.AccessKeyLookup(p.scope.accessKey)
	if !found {
		return fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	canonical := canonicalRequest(method, path, query, headers, p.signedHeaders)
	expected := sign(secretKey, p.scope, p.requestTime, canonical)

	if !hmac.Equal([]byte(expected), []byte(p.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

// Presigner is the inverse of SignatureVerifier: it issues the presigned blob
// URLs that a verifier configured with the same region, service and key
// accepts. Only the local object store uses it; S3 and Stowry sign their own.
type Presigner struct {
	Endpoint  *url.URL
	AccessKey string
	SecretKey string
	Region    string
	Service   string
	// Now returns the signing time. Defaults to time.Now.
	Now func() time.Time
}

// NewPresigner creates a presigner for objects served under endpoint,
// e.g. "http://localhost:5708/blobs".
func NewPresigner(endpoint, accessKey, secretKey, region, service string) (*Presigner, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("new presigner: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new presigner: %w: endpoint must be absolute", ErrInvalidInput)
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("new presigner: %w: credentials required", ErrInvalidInput)
	}

	return &Presigner{
		Endpoint:  u,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    region,
		Service:   service,
	}, nil
}

// Presign returns a URL authorizing method on key until expires elapses.
// Every header in signed is bound into the signature and must be sent
// unchanged by the client; host is always signed.
func (p *Presigner) Presign(method, key string, expires time.Duration, signed http.Header) (string, error) {
	seconds := int(expires / time.Second)
	if seconds <= 0 || seconds > MaxExpiresSeconds {
		return "", fmt.Errorf("presign: %w: expires must be between 1 and %d seconds", ErrInvalidInput, MaxExpiresSeconds)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	requestTime := now().UTC()

	headers := http.Header{}
	for name, values := range signed {
		headers[http.CanonicalHeaderKey(name)] = values
	}
	headers.Set("Host", p.Endpoint.Host)

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	signedHeaders := strings.Join(names, ";")

	path := strings.TrimSuffix(p.Endpoint.Path, "/") + "/" + key

	scope := credentialScope{
		accessKey: p.AccessKey,
		date:      requestTime.Format(DateFormat),
		region:    p.Region,
		service:   p.Service,
	}

	query := url.Values{}
	query.Set("X-Amz-Algorithm", SignatureAlgorithm)
	query.Set("X-Amz-Credential", scope.credential())
	query.Set("X-Amz-Date", requestTime.Format(DateTimeFormat))
	query.Set("X-Amz-Expires", strconv.Itoa(seconds))
	query.Set("X-Amz-SignedHeaders", signedHeaders)

	canonical := canonicalRequest(method, path, query, headers, signedHeaders)
	query.Set("X-Amz-Signature", sign(p.SecretKey, scope, requestTime, canonical))

	u := url.URL{
		Scheme:   p.Endpoint.Scheme,
		Host:     p.Endpoint.Host,
		Path:     path,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// credentialScope is the X-Amz-Credential value split into its parts.
type credentialScope struct {
	accessKey string
	date      string
	region    string
	service   string
}

func parseCredential(raw string) (credentialScope, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 5 {
		return credentialScope{}, fmt.Errorf("invalid X-Amz-Credential format: %w", ErrUnauthorized)
	}
	if parts[4] != "aws4_request" {
		return credentialScope{}, fmt.Errorf("invalid credential terminator: expected aws4_request: %w", ErrUnauthorized)
	}
	return credentialScope{accessKey: parts[0], date: parts[1], region: parts[2], service: parts[3]}, nil
}

// String returns the scope without the access key, as used in the string to sign.
func (c credentialScope) String() string {
	return c.date + "/" + c.region + "/" + c.service + "/aws4_request"
}

func (c credentialScope) credential() string {
	return c.accessKey + "/" + c.String()
}

type presignedParams struct {
	scope         credentialScope
	requestTime   time.Time
	signedHeaders string
	signature     string
}

func (v *SignatureVerifier) parse(query url.Values) (presignedParams, error) {
	algorithm := query.Get("X-Amz-Algorithm")
	credential := query.Get("X-Amz-Credential")
	date := query.Get("X-Amz-Date")
	expiresRaw := query.Get("X-Amz-Expires")
	signedHeaders := query.Get("X-Amz-SignedHeaders")
	signature := query.Get("X-Amz-Signature")

	if algorithm == "" || credential == "" || date == "" ||
		expiresRaw == "" || signedHeaders == "" || signature == "" {
		return presignedParams{}, fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	if algorithm != SignatureAlgorithm {
		return presignedParams{}, fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, algorithm, ErrUnauthorized)
	}

	requestTime, err := time.Parse(DateTimeFormat, date)
	if err != nil {
		return presignedParams{}, fmt.Errorf("invalid X-Amz-Date format: %w", ErrUnauthorized)
	}

	expires, err := strconv.Atoi(expiresRaw)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return presignedParams{}, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if now().After(requestTime.Add(time.Duration(expires) * time.Second)) {
		return presignedParams{}, fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	scope, err := parseCredential(credential)
	if err != nil {
		return presignedParams{}, err
	}

	switch {
	case scope.date != requestTime.Format(DateFormat):
		return presignedParams{}, fmt.Errorf("credential date mismatch: %w", ErrUnauthorized)
	case scope.region != v.Region:
		return presignedParams{}, fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, scope.region, ErrUnauthorized)
	case scope.service != v.Service:
		return presignedParams{}, fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, scope.service, ErrUnauthorized)
	}

	return presignedParams{
		scope:         scope,
		requestTime:   requestTime,
		signedHeaders: signedHeaders,
		signature:     signature,
	}, nil
}

// sign derives the scoped signing key from secretKey and returns the hex
// HMAC of the string to sign for canonical.
func sign(secretKey string, scope credentialScope, requestTime time.Time, canonical string) string {
	stringToSign := SignatureAlgorithm + "\n" +
		requestTime.Format(DateTimeFormat) + "\n" +
		scope.String() + "\n" +
		sha256Hex([]byte(canonical))

	key := hmacSHA256([]byte("AWS4"+secretKey), []byte(scope.date))
	key = hmacSHA256(key, []byte(scope.region))
	key = hmacSHA256(key, []byte(scope.service))
	key = hmacSHA256(key, []byte("aws4_request"))

	return hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))
}

// canonicalRequest renders the request in SigV4 canonical form. The payload
// is never hashed; blob URLs sign UNSIGNED-PAYLOAD.
func canonicalRequest(method, path string, query url.Values, headers http.Header, signedHeaders string) string {
	unsigned := make(url.Values, len(query))
	for k, vs := range query {
		if k != "X-Amz-Signature" {
			unsigned[k] = vs
		}
	}

	names := strings.Split(signedHeaders, ";")
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(unsigned.Encode())
	b.WriteByte('\n')
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(headers.Get(name)))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(signedHeaders)
	b.WriteByte('\n')
	b.WriteString("UNSIGNED-PAYLOAD")
	return b.String()
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
