package core

import (
	"encoding/json"
	"io"

	"github.com/hqc-securechain/qrisk/internal/report"
)

// MarshalReport writes rep in the persisted report format.
func MarshalReport(w io.Writer, rep Report) error {
	b, err := report.Marshal(rep)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// UnmarshalReport decodes a saved report, useful for ingestion tests.
func UnmarshalReport(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
