package utils

// NormalizeCPF keeps only the digits of a CPF.
func NormalizeCPF(cpf string) string {
	return DigitsOnly(cpf)
}

// ValidateCPF checks length, repeated digits and both check digits.
func ValidateCPF(cpf string) bool {
	cpf = NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return false
	}

	d := make([]int, 11)
	same := true
	for i := 0; i < 11; i++ {
		d[i] = int(cpf[i] - '0')
		if d[i] != d[0] {
			same = false
		}
	}
	if same {
		return false
	}

	for i := 9; i < 11; i++ {
		sum := 0
		for k := 0; k < i; k++ {
			sum += d[k] * (i + 1 - k)
		}
		if (sum*10)%11%10 != d[i] {
			return false
		}
	}
	return true
}
