package chart

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantErr    error
		wantType   string
		wantLabels []string
		wantData   []float64
	}{
		{
			name:       "well formed marker line",
			reply:      `grafico = {"type":"bar","data":{"labels":["A","B"],"datasets":[{"label":"Valor","data":[10,20]}]}}`,
			wantType:   "bar",
			wantLabels: []string{"A", "B"},
			wantData:   []float64{10, 20},
		},
		{
			name:       "json fence",
			reply:      "```json\ngrafico = {\"type\": \"line\", \"data\": {\"labels\": [\"2025-04\"], \"datasets\": [{\"label\": \"Total\", \"data\": [532.1]}]}}\n```",
			wantType:   "line",
			wantLabels: []string{"2025-04"},
			wantData:   []float64{532.1},
		},
		{
			name:       "no spaces around marker",
			reply:      `grafico={"type":"pie","data":{"labels":["x"],"datasets":[{"label":"Y","data":[1]}]}}`,
			wantType:   "pie",
			wantLabels: []string{"x"},
			wantData:   []float64{1},
		},
		{
			name:       "numeric labels",
			reply:      `grafico = {"type":"bar","data":{"labels":[2024, 2025.5],"datasets":[{"label":"Ano","data":[1,2]}]}}`,
			wantType:   "bar",
			wantLabels: []string{"2024", "2025.5"},
			wantData:   []float64{1, 2},
		},
		{
			name:       "prose before marker",
			reply:      "Aqui está o gráfico:\ngrafico = {\"type\":\"bar\",\"data\":{\"labels\":[\"A\"],\"datasets\":[{\"label\":\"V\",\"data\":[3]}]}}",
			wantType:   "bar",
			wantLabels: []string{"A"},
			wantData:   []float64{3},
		},
		{name: "no marker", reply: `{"type":"bar","data":{"labels":[],"datasets":[]}}`, wantErr: ErrMarkerNotFound},
		{name: "empty reply", reply: "", wantErr: ErrMarkerNotFound},
		{name: "python code", reply: "```python\nprint('grafico')\n```", wantErr: ErrMarkerNotFound},
		{
			name:    "trailing comma",
			reply:   `grafico = {"type":"bar","data":{"labels":["A","B",],"datasets":[{"label":"Valor","data":[10,20]}]}}`,
			wantErr: ErrMalformedSpec,
		},
		{name: "single quotes", reply: `grafico = {'type': 'bar'}`, wantErr: ErrMalformedSpec},
		{
			name:    "non numeric series",
			reply:   `grafico = {"type":"bar","data":{"labels":["A"],"datasets":[{"label":"V","data":["dez"]}]}}`,
			wantErr: ErrMalformedSpec,
		},
		{
			name:    "boolean label",
			reply:   `grafico = {"type":"bar","data":{"labels":[true],"datasets":[]}}`,
			wantErr: ErrMalformedSpec,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Extract(tt.reply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tt.wantErr)
				}
				if spec != nil {
					t.Fatalf("Extract() spec = %+v, want nil", spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if spec.Type != tt.wantType {
				t.Fatalf("Type = %q, want %q", spec.Type, tt.wantType)
			}
			if len(spec.Data.Labels) != len(tt.wantLabels) {
				t.Fatalf("Labels = %v, want %v", spec.Data.Labels, tt.wantLabels)
			}
			for i := range tt.wantLabels {
				if spec.Data.Labels[i] != tt.wantLabels[i] {
					t.Fatalf("Labels = %v, want %v", spec.Data.Labels, tt.wantLabels)
				}
			}
			if len(spec.Data.Datasets) != 1 {
				t.Fatalf("Datasets = %+v", spec.Data.Datasets)
			}
			got := spec.Data.Datasets[0].Data
			if len(got) != len(tt.wantData) {
				t.Fatalf("Data = %v, want %v", got, tt.wantData)
			}
			for i := range tt.wantData {
				if got[i] != tt.wantData[i] {
					t.Fatalf("Data = %v, want %v", got, tt.wantData)
				}
			}
		})
	}
}

func TestSpecJSONShape(t *testing.T) {
	spec := Spec{Type: "bar", Data: Data{Labels: Labels{"A"}, Datasets: []Dataset{{Label: "Valor", Data: []float64{10}}}}}
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"type":"bar","data":{"labels":["A"],"datasets":[{"label":"Valor","data":[10]}]}}`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}
