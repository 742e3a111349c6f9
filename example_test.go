package damsdk_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	damsdk "github.com/aubreyosenda/dam-sdk-go"
)

func ExampleNew() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"data":{"id":"file-1","filename":"notes.txt","mime_type":"text/plain","size":11}}`)
	}))
	defer ts.Close()

	c, err := damsdk.New(ts.URL, "key-id", "key-secret")
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	file, err := c.UploadReader(context.Background(), strings.NewReader("hello world"), "notes.txt", nil)
	if err != nil {
		fmt.Println("upload error:", err)
		return
	}

	fmt.Println(file.ID, file.MimeType)
	// Output: file-1 text/plain
}

func ExampleClient_FileURL() {
	c, err := damsdk.New("https://dam.example.com", "key-id", "key-secret")
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	fmt.Println(c.FileURL("file-42", &damsdk.Transform{Width: 320, Format: "webp"}))
	fmt.Println(c.ThumbnailURL("file-42", 0))
	// Output:
	// https://dam.example.com/api/transform/file-42?format=webp&w=320
	// https://dam.example.com/api/transform/file-42/thumbnail?size=200
}
