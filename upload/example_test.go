package upload_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
	"github.com/aubreyosenda/dam-sdk-go/upload"
)

func ExampleCoordinator_Submit() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"data":{"id":"id-1","filename":"%s","mime_type":"text/plain"}}`, header.Filename)
	}))
	defer ts.Close()

	client, err := damsdk.New(ts.URL, "key-id", "key-secret")
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	coord, err := upload.NewCoordinator(client, upload.Config{Concurrency: 2})
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	open := func(body string) upload.OpenFunc {
		return func(ctx context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		}
	}

	report, err := coord.Submit(context.Background(), []upload.Item{
		{Name: "a.txt", Open: open("alpha")},
		{Name: "b.txt", Open: open("bravo")},
	})
	if err != nil {
		fmt.Println("submit error:", err)
		return
	}

	fmt.Printf("uploaded %d of %d\n", report.Succeeded(), report.Len())
	// Output: uploaded 2 of 2
}
