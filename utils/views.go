package utils

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/nuttroadm/backendnuttro/models"
)

var viewOptions = copier.Option{
	Converters: []copier.TypeConverter{{
		SrcType: models.StringList{},
		DstType: []string{},
		Fn: func(src interface{}) (interface{}, error) {
			l, _ := src.(models.StringList)
			if v := l.Data(); v != nil {
				return v, nil
			}
			return []string{}, nil
		},
	}},
}

func ToPacienteView(p *models.Paciente) (models.PacienteView, error) {
	var v models.PacienteView
	if err := copier.CopyWithOption(&v, p, viewOptions); err != nil {
		return models.PacienteView{}, fmt.Errorf("paciente view: %w", err)
	}
	return v, nil
}

func ToPacienteViews(list []models.Paciente) ([]models.PacienteView, error) {
	out := make([]models.PacienteView, 0, len(list))
	for i := range list {
		v, err := ToPacienteView(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func ToNutricionistaView(n *models.Nutricionista) (models.NutricionistaView, error) {
	var v models.NutricionistaView
	if err := copier.CopyWithOption(&v, n, viewOptions); err != nil {
		return models.NutricionistaView{}, fmt.Errorf("nutricionista view: %w", err)
	}
	return v, nil
}
