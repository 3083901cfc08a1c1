package sign

import (
	"crypto/md5"
	"encoding/hex"
)

// Token derives the provider authentication signature: the hex MD5 of
// secret, pin and serial concatenated in that exact order with no
// delimiter. The provider recomputes and compares byte-for-byte, so the
// order is part of the wire contract; a mismatch is rejected silently
// rather than reported as an error.
func Token(secret, pin, serial string) string {
	sum := md5.Sum([]byte(secret + pin + serial))
	return hex.EncodeToString(sum[:])
}
