// Package wire defines the messages exchanged between workers and the
// coordinator over the gRPC Session stream.
//
// Frames travel as google.protobuf.Struct values, so both sides use the
// default proto codec without generated message types.
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type FrameType string

const (
	FramePull        FrameType = "pull"
	FramePullReply   FrameType = "pull_reply"
	FrameReport      FrameType = "report"
	FrameReportReply FrameType = "report_reply"
	FrameError       FrameType = "error"
)

type PullStatus string

const (
	PullStatusOK                   PullStatus = "ok"
	PullStatusNoMoreTasks          PullStatus = "no_more_tasks"
	PullStatusNoMoreAvailableTasks PullStatus = "no_more_available_tasks"
)

// Frame is the envelope of every Session message. Exactly one payload
// matching Type is set.
type Frame struct {
	Type FrameType `json:"type"`

	Pull        *PullRequest   `json:"pull,omitempty"`
	PullReply   *PullReply     `json:"pull_reply,omitempty"`
	Report      *ReportRequest `json:"report,omitempty"`
	ReportReply *ReportReply   `json:"report_reply,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type PullRequest struct {
	MaxTasks int `json:"max_tasks"`
}

type PullReply struct {
	Status PullStatus       `json:"status"`
	Tasks  []TaskAssignment `json:"tasks,omitempty"`
}

type TaskAssignment struct {
	TaskID  int64    `json:"task_id"`
	JobID   int64    `json:"job_id"`
	Command []string `json:"command"`
	Input   string   `json:"input,omitempty"`
	Output  string   `json:"output,omitempty"`
	Attempt int      `json:"attempt"`
}

// Outcomes a worker may report. They match the coordinator's task outcomes.
const (
	OutcomeProcessed = "PROCESSED"
	OutcomeFailed    = "FAILED"
)

type ReportRequest struct {
	Reports []TaskReport `json:"reports"`
}

type TaskReport struct {
	TaskID  int64  `json:"task_id"`
	Outcome string `json:"outcome"`
	Result  []byte `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ReportReply struct {
	Accepted int     `json:"accepted"`
	Rejected []int64 `json:"rejected,omitempty"`
}

func Encode(frame Frame) (*structpb.Struct, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", frame.Type, err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", frame.Type, err)
	}
	return msg, nil
}

func Decode(msg *structpb.Struct) (Frame, error) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := frame.validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

func (f Frame) validate() error {
	var ok bool
	switch f.Type {
	case FramePull:
		ok = f.Pull != nil
	case FramePullReply:
		ok = f.PullReply != nil
	case FrameReport:
		ok = f.Report != nil
	case FrameReportReply:
		ok = f.ReportReply != nil
	case FrameError:
		ok = true
	default:
		return fmt.Errorf("decode frame: unknown type %q", f.Type)
	}
	if !ok {
		return fmt.Errorf("decode frame: %s frame without payload", f.Type)
	}
	return nil
}
