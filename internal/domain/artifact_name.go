package domain

import "strings"

const ArtifactExt = ".png"

const hexdigits = "0123456789abcdef"

// ArtifactName encodes a domain into a filesystem-safe file name.
// Bytes in [a-z0-9-] are kept; every other byte, including '_', becomes
// '_' followed by its two lowercase hex digits. The mapping is injective,
// and stays injective on case-insensitive filesystems.
func ArtifactName(d string) string {
	var b strings.Builder
	b.Grow(len(d) + len(ArtifactExt))
	for i := 0; i < len(d); i++ {
		c := d[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('_')
		b.WriteByte(hexdigits[c>>4])
		b.WriteByte(hexdigits[c&0x0f])
	}
	b.WriteString(ArtifactExt)
	return b.String()
}
