package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/async"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PNG"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.pdf"))
	touch(t, filepath.Join(root, ".cache", "c.pdf"))
	touch(t, filepath.Join(root, "out", "d.pdf"))
	touch(t, filepath.Join(root, "sub", "e.jpg"))

	paths, stats, err := ScanDirectory(root, true, filepath.Join(root, "out"))
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "e.jpg"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	if stats.Scanned != 4 || stats.Matched != 3 {
		t.Errorf("Expected 4 scanned / 3 matched, got %+v", stats)
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	if _, _, err := ScanDirectory(" ", false, ""); err == nil {
		t.Error("Expected error for empty root")
	}
	if _, _, err := ScanDirectory(filepath.Join(t.TempDir(), "missing"), false, ""); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestTemplateFor(t *testing.T) {
	root := t.TempDir()
	in := NewInbox(root, filepath.Join(root, "out"), []string{"bank_statement", "erv_challan", "fuel_slip"}, 0, nil, nil)

	tests := []struct {
		path    string
		want    constants.Template
		wantErr bool
	}{
		{path: filepath.Join(root, "bank_statement", "june.pdf"), want: constants.BankStatement},
		{path: filepath.Join(root, "challan", "nested", "c.png"), want: constants.ERVChallan},
		{path: filepath.Join(root, "fuel-slip", "f.pdf"), want: constants.Template("fuel_slip")},
		{path: filepath.Join(root, "iocl_invoice", "i.pdf"), wantErr: true},
		{path: filepath.Join(root, "top.pdf"), wantErr: true},
		{path: filepath.Join(root, "receipts", "r.pdf"), wantErr: true},
		{path: filepath.Join(filepath.Dir(root), "elsewhere", "x.pdf"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := in.TemplateFor(tt.path)
			if tt.wantErr {
				if !errors.Is(err, common.ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	got  chan struct{}
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	q.got <- struct{}{}
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func TestInboxRunSubmitsExistingAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "iocl_invoice", "old.pdf")
	touch(t, existing)

	q := &recordingQueue{got: make(chan struct{}, 8)}
	in := NewInbox(root, filepath.Join(root, "out"), []string{"bank_statement", "erv_challan", "iocl_invoice"}, 0, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	wait := func() {
		t.Helper()
		select {
		case <-q.got:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for enqueue")
		}
	}
	wait()

	fresh := filepath.Join(root, "erv_challan", "new.pdf")
	touch(t, fresh)
	wait()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.jobs[0].Path != existing || q.jobs[0].Template != string(constants.IOCLInvoice) {
		t.Errorf("unexpected first job %+v", q.jobs[0])
	}
	if q.jobs[1].Path != fresh || q.jobs[1].Template != string(constants.ERVChallan) {
		t.Errorf("unexpected second job %+v", q.jobs[1])
	}
	if q.jobs[0].RequestID == "" {
		t.Error("Expected request id on job")
	}
}

func TestWriteResults(t *testing.T) {
	out := t.TempDir()
	handle := WriteResults(out, nil)

	job := async.NewJob("/in/erv_challan/c1.pdf", string(constants.ERVChallan))
	res := &entity.Result{
		Template:   constants.ERVChallan,
		Kind:       constants.KindSequential,
		FieldOrder: []string{"truck_no"},
		Fields:     map[string]*string{"truck_no": entity.Ptr("TS12UA5601")},
	}
	handle(context.Background(), job, res, nil)

	data, err := os.ReadFile(filepath.Join(out, "c1.json"))
	if err != nil {
		t.Fatalf("result file: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"fields": map[string]any{"truck_no": "TS12UA5601"},
		"table":  []any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}

	failed := async.NewJob("/in/bank_statement/s.pdf", string(constants.BankStatement))
	handle(context.Background(), failed, nil, common.InputMissing(failed.Path, os.ErrNotExist))

	data, err = os.ReadFile(filepath.Join(out, "s.error.json"))
	if err != nil {
		t.Fatalf("error file: %v", err)
	}
	var f failure
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	if f.Code != "INPUT_MISSING" || f.JobID != failed.ID.String() {
		t.Errorf("unexpected failure record %+v", f)
	}
}
