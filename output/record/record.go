package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
)

// Writer 回放文件写入器
// 功能：实现output.Sink，每帧一行JSON，整体使用zstd压缩
type Writer struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter 创建回放文件，所在目录不存在时自动创建
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, errors.New("empty record path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (w *Writer) Name() string {
	return "record"
}

func (w *Writer) Init(f *entity.Frame) error {
	return w.write(f)
}

func (w *Writer) Publish(f *entity.Frame) error {
	return w.write(f)
}

func (w *Writer) write(f *entity.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("record %s: writer closed", w.path)
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close 刷新缓冲并关闭文件
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	errFile := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	if err := errors.Join(errFlush, errEnc, errFile); err != nil {
		return err
	}
	log.Infof("replay written to %s", w.path)
	return nil
}

// ReadFrames 读取回放文件中的全部帧
func ReadFrames(path string) ([]*entity.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	frames := make([]*entity.Frame, 0)
	jd := json.NewDecoder(dec)
	for {
		var frame entity.Frame
		if err := jd.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, &frame)
	}
	return frames, nil
}
