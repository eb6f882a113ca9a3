package auth

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/xdg-go/pbkdf2"
)

// DefaultIters is the PBKDF2 iteration count used when deriving SCRAM
// credentials from a plaintext password (RFC 5802 recommends >= 4096;
// matches the minimum xdg-go/scram itself documents).
const DefaultIters = 4096

// deriveCredential computes the SCRAM StoredKey/ServerKey pair for a
// plaintext password, following RFC 5802 §3's SaltedPassword/ClientKey/
// ServerKey/StoredKey recipe. Used by the Wallet CredentialSource, which
// only has a plaintext password to start from, never by the SCRAM
// conversation itself.
func deriveCredential(username string, password string, salt []byte, iters int) Credential {
	salted := pbkdf2.Key([]byte(password), salt, iters, sha256.Size, sha256.New)
	clientKey := hmacSum(salted, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	serverKey := hmacSum(salted, []byte("Server Key"))
	return Credential{
		Username:  username,
		Salt:      salt,
		Iters:     iters,
		StoredKey: storedKey[:],
		ServerKey: serverKey,
	}
}

func hmacSum(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
