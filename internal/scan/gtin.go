package scan

// IsEAN13 reports whether code is a 13 digit GTIN with a valid check digit.
func IsEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}
	sum := 0
	for i := range 12 {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	last := code[12]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}
