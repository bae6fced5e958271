package azure

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

type fakeClient struct {
	result computervision.OcrResult
	err    error
	lang   computervision.OcrLanguages
}

func (f *fakeClient) RecognizePrintedTextInStream(_ context.Context, _ bool, image io.ReadCloser, lang computervision.OcrLanguages) (computervision.OcrResult, error) {
	f.lang = lang
	_, _ = io.ReadAll(image)
	return f.result, f.err
}

func sp(s string) *string { return &s }

func sampleResult() computervision.OcrResult {
	return computervision.OcrResult{
		Regions: &[]computervision.OcrRegion{{
			Lines: &[]computervision.OcrLine{
				{
					BoundingBox: sp("10,20,200,30"),
					Words: &[]computervision.OcrWord{
						{BoundingBox: sp("10,20,80,30"), Text: sp("Truck")},
						{BoundingBox: sp("100,20,110,30"), Text: sp("TS10UB9177")},
					},
				},
				{BoundingBox: sp("bad"), Words: &[]computervision.OcrWord{{BoundingBox: sp("1,2"), Text: sp("skip")}}},
			},
		}},
	}
}

func writePage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "page-1.png")
	if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRecognizeWords(t *testing.T) {
	fc := &fakeClient{result: sampleResult()}
	e := newEngine(fc, "", nil)

	got, err := e.Recognize(context.Background(), ocr.Page{Index: 2, Path: writePage(t), Granularity: ocr.Word})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	want := []entity.OcrToken{
		{BBox: entity.BBox{X0: 10, Y0: 20, X1: 90, Y1: 50}, Text: "Truck", Confidence: 1, Page: 2},
		{BBox: entity.BBox{X0: 100, Y0: 20, X1: 210, Y1: 50}, Text: "TS10UB9177", Confidence: 1, Page: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens (-want +got):\n%s", diff)
	}
	if fc.lang != computervision.OcrLanguagesEn {
		t.Errorf("Expected language en, got %q", fc.lang)
	}
}

func TestRecognizeLines(t *testing.T) {
	e := newEngine(&fakeClient{result: sampleResult()}, "", nil)
	got, err := e.Recognize(context.Background(), ocr.Page{Path: writePage(t), Granularity: ocr.Line})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Truck TS10UB9177" {
		t.Errorf("Expected one merged line, got %+v", got)
	}
}

func TestRecognizeErrors(t *testing.T) {
	e := newEngine(&fakeClient{err: errors.New("quota")}, "", nil)
	if _, err := e.Recognize(context.Background(), ocr.Page{Path: writePage(t)}); err == nil {
		t.Error("Expected client error to propagate")
	}
	if _, err := e.Recognize(context.Background(), ocr.Page{Path: "/does/not/exist.png"}); err == nil {
		t.Error("Expected open error")
	}
}
