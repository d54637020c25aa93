package real

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// resolveBinary returns the absolute path of name (or of override when set).
func resolveBinary(name, override string) (string, error) {
	target := name
	if override != "" {
		target = override
	}
	path, err := exec.LookPath(target)
	if err != nil {
		return "", unsupported(target, err)
	}
	return path, nil
}

// withBinary points a compiled ffmpeg command at an explicit executable.
func withBinary(path string) ffmpeg.CompilationOption {
	return func(_ *ffmpeg.Stream, cmd *exec.Cmd) {
		cmd.Path = path
		cmd.Args[0] = path
		cmd.Err = nil
	}
}

// pipeProcess is a running ffmpeg whose stdout is read by the caller.
type pipeProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *lockedBuffer
	once   sync.Once
	err    error
}

// startPipe compiles stream and starts it with a stdout pipe.
func startPipe(stream *ffmpeg.Stream, binary string) (*pipeProcess, error) {
	cmd := stream.Compile(withBinary(binary))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", strings.Join(cmd.Args, " "))
	}

	logrus.WithFields(logrus.Fields{
		"function": "startPipe",
		"pid":      cmd.Process.Pid,
		"args":     strings.Join(stream.GetArgs(), " "),
	}).Debug("ffmpeg process started")

	return &pipeProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// killOnDone kills the process when ctx ends; the returned func detaches.
func (p *pipeProcess) killOnDone(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

// stop kills the process and reaps it once.
func (p *pipeProcess) stop() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.stdout.Close()
		p.err = p.cmd.Wait()
	})
	return p.err
}

// lockedBuffer collects stderr for error reports.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Keep the tail; ffmpeg is chatty.
	if b.buf.Len() > 64<<10 {
		tail := b.buf.Bytes()[b.buf.Len()-16<<10:]
		b.buf = *bytes.NewBuffer(append([]byte(nil), tail...))
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
