package helpers

// maxGenerateNameLen leaves room for the 5 random characters the API server
// appends to a generateName within the 63 char DNS label limit.
const maxGenerateNameLen = 58

// ComputeGenerateName builds a DNS-1123 label prefix of the form
// "<prefix>-<name>-" suitable for metadata.generateName.
func ComputeGenerateName(prefixStr, nameStr string) string {
	main := prefixStr + "-" + nameStr
	out := make([]byte, 0, len(main)+1)
	lastHyphen := false
	for i := 0; i < len(main); i++ {
		b := main[i]
		if b >= 'A' && b <= 'Z' {
			b = b + ('a' - 'A')
		}
		if (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') {
			out = append(out, b)
			lastHyphen = false
		} else {
			if !lastHyphen && len(out) > 0 {
				out = append(out, '-')
				lastHyphen = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "job-"
	}

	if len(out) > maxGenerateNameLen-1 {
		out = out[:maxGenerateNameLen-1]
		for len(out) > 0 && out[len(out)-1] == '-' {
			out = out[:len(out)-1]
		}
	}

	return string(out) + "-"
}
