// Package oracle talks to the external executors that run a pair of
// compiled artifacts, and compares what they observed.
package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a worker does not answer in time. The
	// worker has been killed.
	ErrTimeout = errors.New("oracle: worker timed out")
	// ErrWorkerCrashed is returned when a worker exits or answers with
	// something that is not a response.
	ErrWorkerCrashed = errors.New("oracle: worker crashed")
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("oracle: pool closed")
)

// ResultKind is how one artifact's execution ended.
type ResultKind int

const (
	RanSuccessfully ResultKind = iota
	ThrewException
	InternalFailure
)

var resultKindNames = [...]string{"RanSuccessfully", "ThrewException", "InternalFailure"}

func (k ResultKind) String() string {
	if int(k) < len(resultKindNames) {
		return resultKindNames[k]
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// ParseResultKind is the inverse of String.
func ParseResultKind(s string) (ResultKind, error) {
	for i, n := range resultKindNames {
		if n == s {
			return ResultKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown result kind %q", s)
}

func (k ResultKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ResultKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseResultKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ChecksumSite is one reached checksum call and the running hash after it.
type ChecksumSite struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// RunResult describes one execution.
type RunResult struct {
	Checksum            string         `json:"checksum"`
	ChecksumSites       []ChecksumSite `json:"checksumSites,omitempty"`
	Kind                ResultKind     `json:"resultKind"`
	ExceptionType       string         `json:"exceptionType,omitempty"`
	ExceptionText       string         `json:"exceptionText,omitempty"`
	InternalFailureText string         `json:"internalFailureText,omitempty"`
}

// PairRequest asks for both artifacts to be run. With TrackOutput the
// worker records the per-site trace, which is slower.
type PairRequest struct {
	TrackOutput     bool   `json:"trackOutput"`
	DebugArtifact   []byte `json:"debugArtifact"`
	ReleaseArtifact []byte `json:"releaseArtifact"`
}

// PairResult is the worker's answer to a PairRequest.
type PairResult struct {
	Debug   RunResult `json:"debug"`
	Release RunResult `json:"release"`
}

// RequestKind selects what a request line asks for.
type RequestKind string

const (
	RequestRunPair  RequestKind = "RunPair"
	RequestShutdown RequestKind = "Shutdown"
)

// Request is one line written to a worker.
type Request struct {
	Kind RequestKind  `json:"kind"`
	Pair *PairRequest `json:"pair,omitempty"`
}
