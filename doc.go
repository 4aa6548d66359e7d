// Package courier builds and sends HTTP requests whose bodies can report
// upload progress while they are transmitted.
//
// # Basic Usage
//
// Build a request and send it through a client:
//
//	client, err := courier.NewClient(courier.WithBaseURL("https://example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	body, err := courier.File("./report.pdf", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req := courier.Post("/upload", body).
//	    OnUploadProgress(courier.ProgressFunc(func(ev courier.ProgressEvent) {
//	        fmt.Printf("%d/%d\n", ev.BytesWritten, ev.TotalBytes)
//	    }))
//	resp, err := client.Do(ctx, req)
//
// # Progress
//
// The callback registered with OnUploadProgress is called once for every
// chunk the payload writes to the transport, on the goroutine doing the
// write. Events carry the running byte count and the declared length, which
// is UnknownLength for streamed or compressed bodies. A payload that is
// written again (for example by http.Request.GetBody) reports from zero.
//
// WithProgress exposes the same decoration for callers that hand payloads to
// their own transport.
//
// # Payloads
//
// Bytes, String, Form, File and NewMultipart create re-sendable bodies.
// Reader streams a body once. Compress applies gzip or zstd
// Content-Encoding, and Chunked bounds the size of individual writes.
package courier
