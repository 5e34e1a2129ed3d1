package sink

import (
	"encoding/json"
	"os"

	"rtt-collect/internal/measure"
)

// FileWriter writes results and traces to JSONL files.
type FileWriter struct {
	resultFile *os.File
	traceFile  *os.File
	resultEnc  *json.Encoder
	traceEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. tracePath may be empty to skip traces.
func NewFileWriter(resultPath, tracePath string) (*FileWriter, error) {
	rf, err := os.Create(resultPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{resultFile: rf, resultEnc: json.NewEncoder(rf)}
	if tracePath != "" {
		tf, err := os.Create(tracePath)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.traceFile = tf
		fw.traceEnc = json.NewEncoder(tf)
	}
	return fw, nil
}

// WriteResult logs a single host result.
func (f *FileWriter) WriteResult(r measure.HostResult) error {
	return f.resultEnc.Encode(r)
}

// WriteTrace logs a single trace result, if enabled.
func (f *FileWriter) WriteTrace(t measure.TraceResult) error {
	if f.traceEnc == nil {
		return nil
	}
	return f.traceEnc.Encode(t)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.resultFile != nil {
		err = f.resultFile.Close()
	}
	if f.traceFile != nil {
		if e := f.traceFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
