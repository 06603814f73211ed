package proc

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/zerr"
)

// replyFD is the descriptor a worker writes its reply to. It is the first of ExtraFiles.
const replyFD = 3

// reply is what a worker reports back. Exactly one of Handoff and Error is set.
type reply struct {
	Handoff *domain.Handoff `json:"handoff,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// JobFunc executes a job inside a worker process.
type JobFunc func(ctx context.Context, job domain.Job) (domain.Handoff, error)

// ReplyWriter opens the descriptor the parent reads the reply from. The descriptor
// is not inherited by processes the worker starts, so the parent sees EOF once the
// worker exits.
func ReplyWriter() io.WriteCloser {
	closeOnExec(replyFD)
	return os.NewFile(replyFD, "mill-worker-reply")
}

// Serve decodes a job from in, runs it, and writes the reply to out.
// The returned error is the job's own error, so the worker can exit non-zero.
func Serve(ctx context.Context, in io.Reader, out io.Writer, run JobFunc) error {
	var job domain.Job
	if err := json.NewDecoder(in).Decode(&job); err != nil {
		err = zerr.Wrap(err, "failed to decode worker job")
		_ = writeReply(out, reply{Error: err.Error()})
		return err
	}

	h, runErr := run(ctx, job)
	r := reply{Handoff: &h}
	if runErr != nil {
		r = reply{Error: runErr.Error()}
	}
	if err := writeReply(out, r); err != nil {
		return zerr.Wrap(err, "failed to write worker reply")
	}
	return runErr
}

func writeReply(w io.Writer, r reply) error {
	return json.NewEncoder(w).Encode(r)
}
