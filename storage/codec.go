package storage

import (
	"encoding/json"
	"fmt"

	"github.com/pthm-cable/neurosnake/neural"
)

// CurrentCodecVersion tags every encoded chromosome.
const CurrentCodecVersion = 1

type chromosomePayload struct {
	Version int       `json:"v"`
	Genes   []float64 `json:"genes"`
}

// EncodeChromosome serializes genes for a BLOB column.
func EncodeChromosome(c neural.Chromosome) ([]byte, error) {
	return json.Marshal(chromosomePayload{Version: CurrentCodecVersion, Genes: c})
}

// DecodeChromosome reverses EncodeChromosome.
func DecodeChromosome(data []byte) (neural.Chromosome, error) {
	var p chromosomePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Version != CurrentCodecVersion {
		return nil, fmt.Errorf("chromosome codec version %d, want %d", p.Version, CurrentCodecVersion)
	}
	return p.Genes, nil
}

func encodeArchitecture(arch []int) (string, error) {
	data, err := json.Marshal(arch)
	return string(data), err
}

func decodeArchitecture(s string) ([]int, error) {
	var arch []int
	err := json.Unmarshal([]byte(s), &arch)
	return arch, err
}
