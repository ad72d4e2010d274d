package utils

import "errors"

// CalculateIMC expects height in centimeters and weight in kilograms.
func CalculateIMC(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, errors.New("altura e peso devem ser positivos")
	}
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return 0, errors.New("altura/peso fora de faixa plausível")
	}

	h := heightCm / 100.0
	return weightKg / (h * h), nil
}

func IMCCategoria(imc float64) string {
	switch {
	case imc <= 0:
		return "Não calculado"
	case imc < 18.5:
		return "Abaixo do peso"
	case imc < 25.0:
		return "Peso normal"
	case imc < 30.0:
		return "Sobrepeso"
	case imc < 35.0:
		return "Obesidade grau I"
	case imc < 40.0:
		return "Obesidade grau II"
	default:
		return "Obesidade grau III"
	}
}
