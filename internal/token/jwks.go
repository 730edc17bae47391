package token

import (
	"encoding/base64"
	"math/big"
	"sort"
)

// JWK is one RSA public key in JSON Web Key form.
type JWK struct {
	Alg string `json:"alg"`
	E   string `json:"e"`
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	Use string `json:"use"`
}

// JWKS is the document served at /<poolId>/.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// BuildJWKS renders every verification key in ks as a JWKS document,
// ordered by key ID for stable output.
func BuildJWKS(ks KeyStore) JWKS {
	keys := ks.PublicKeys()

	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	doc := JWKS{Keys: make([]JWK, 0, len(kids))}
	for _, kid := range kids {
		pk := keys[kid]
		doc.Keys = append(doc.Keys, JWK{
			Alg: "RS256",
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pk.E)).Bytes()),
			Kid: kid,
			Kty: "RSA",
			N:   base64.RawURLEncoding.EncodeToString(pk.N.Bytes()),
			Use: "sig",
		})
	}
	return doc
}
