package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// genjwks generates an ES256 keypair for local development. The API verifies
// request tokens against the JWKS at AUTH_JWKS_URL; in dev there is no auth
// service to serve one, so this produces both halves: a private JWK to sign
// test tokens with and a public JWKS document to serve statically.
//
// Usage:
//   go run cmd/genjwks/main.go [--save]
func main() {
	fmt.Println("Generating ES256 keypair for dev token verification...")

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate private key: %v", err)
	}

	privJWK, err := jwk.FromRaw(privateKey)
	if err != nil {
		log.Fatalf("Failed to create JWK from private key: %v", err)
	}
	if err := privJWK.Set(jwk.KeyIDKey, "dev-signing-key"); err != nil {
		log.Fatalf("Failed to set kid: %v", err)
	}
	if err := privJWK.Set(jwk.AlgorithmKey, "ES256"); err != nil {
		log.Fatalf("Failed to set alg: %v", err)
	}
	if err := privJWK.Set(jwk.KeyUsageKey, "sig"); err != nil {
		log.Fatalf("Failed to set use: %v", err)
	}

	pubJWK, err := privJWK.PublicKey()
	if err != nil {
		log.Fatalf("Failed to derive public key: %v", err)
	}

	pubSet := jwk.NewSet()
	if err := pubSet.AddKey(pubJWK); err != nil {
		log.Fatalf("Failed to build JWKS: %v", err)
	}

	privJSON, err := json.MarshalIndent(privJWK, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal private JWK: %v", err)
	}
	pubJSON, err := json.MarshalIndent(pubSet, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JWKS: %v", err)
	}

	fmt.Println("\n✅ ES256 keypair generated successfully!")
	fmt.Println("\n📝 Private JWK (sign dev tokens with this, keep it out of version control):")
	fmt.Println("\n" + string(privJSON))
	fmt.Println("\n📝 Public JWKS (serve this at AUTH_JWKS_URL, e.g. with any static file server):")
	fmt.Println("\n" + string(pubJSON))
	fmt.Println("\n⚠️  IMPORTANT:")
	fmt.Println("   - Keep the private key SECRET")
	fmt.Println("   - Generate a new key for every environment")

	if len(os.Args) > 1 && os.Args[1] == "--save" {
		if err := os.WriteFile("dev-private-jwk.json", privJSON, 0600); err != nil {
			log.Fatalf("Failed to write private key file: %v", err)
		}
		if err := os.WriteFile("dev-jwks.json", pubJSON, 0644); err != nil {
			log.Fatalf("Failed to write JWKS file: %v", err)
		}
		fmt.Println("\n💾 Wrote dev-private-jwk.json and dev-jwks.json (add both to .gitignore!)")
	}
}
