package readability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>成都旅游指南</title></head>
<body><article>
<h1>成都旅游指南</h1>
<p>宽窄巷子是成都保存最完整的清代街区之一，青砖灰瓦之间藏着许多茶馆和小吃铺。
来这里最好避开周末的人流高峰，工作日的早晨最为清净。</p>
<p>人民公园的鹤鸣茶社已有百年历史，一碗盖碗茶可以坐一个下午，旁边还有掏耳朵的手艺人。</p>
</article></body></html>`

func TestExec(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	f := Fetch{Timeout: 5 * time.Second, MaxChars: 20000}
	res, err := f.Exec(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.Status != 200 {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if res.Title != "成都旅游指南" {
		t.Errorf("title = %q", res.Title)
	}
	if !strings.Contains(res.Text, "宽窄巷子") {
		t.Errorf("text missing article body: %q", res.Text)
	}
	if res.HTMLHash == "" {
		t.Error("expected non-empty html hash")
	}
}

func TestExecTruncatesText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	f := Fetch{Timeout: 5 * time.Second, MaxChars: 30}
	res, err := f.Exec(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(res.Text) > 30 {
		t.Errorf("text length %d exceeds max", len(res.Text))
	}
}

func TestExecUnreachable(t *testing.T) {
	f := Fetch{Timeout: time.Second}
	res, err := f.Exec(context.Background(), "http://127.0.0.1:1/nope")
	if err != nil {
		t.Fatalf("Exec should not return an error for unreachable hosts: %v", err)
	}
	if res.Status != 599 {
		t.Errorf("status = %d, want 599", res.Status)
	}
}

func TestExecEmptyURL(t *testing.T) {
	f := Fetch{}
	if _, err := f.Exec(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}
