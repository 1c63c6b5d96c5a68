package content

// Sample sizes for the byte heuristics.
const (
	textSampleSize   = 8192
	binarySampleSize = 4096
)

// IsLikelyText decides whether content with no recognised name is text. It
// inspects at most the first 8 KiB and treats bytes 0x80-0xFF as printable so
// UTF-8 and legacy 8-bit encodings pass. Empty content is not text.
func IsLikelyText(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}

	if len(sample) > textSampleSize {
		sample = sample[:textSampleSize]
	}

	var printable, control, nul int

	for _, b := range sample {
		switch {
		case b == 0:
			nul++
			control++

			if nul > 3 {
				return false
			}
		case b == '\t' || b == '\n' || b == '\r':
			printable++
		case b < 0x20:
			control++
		case b <= 0x7E, b >= 0x80:
			printable++
		}
	}

	n := float64(len(sample))

	return float64(printable)/n > 0.7 && float64(control)/n < 0.1 && nul <= 2
}

// LooksBinary is the stricter check applied to content already classified as
// text before rendering it inline: any NUL in the first 4 KiB, or more than one
// eighth control characters, marks it binary.
func LooksBinary(content []byte) bool {
	if len(content) > binarySampleSize {
		content = content[:binarySampleSize]
	}

	var control int

	for _, b := range content {
		if b == 0 {
			return true
		}

		if b < 0x09 || (b > 0x0D && b < 0x20) {
			control++
		}
	}

	return control > len(content)/8
}
