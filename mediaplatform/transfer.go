package mediaplatform

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/imroc/req"
)

// HTTPStatusError reports a non-2xx answer from the staged target.
// StatusCode is 0 when the request never got an HTTP answer.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e.StatusCode == 0 {
		return "transfer failed before receiving a response"
	}
	return fmt.Sprintf("staged target returned HTTP %d", e.StatusCode)
}

// progressReader counts bytes read from the payload and reports percentages.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	onChange func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.onChange != nil {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.lastPct {
			p.lastPct = pct
			p.onChange(pct)
		}
	}
	return n, err
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}

// UploadStagedFile performs the single multipart POST to a staged target.
// Form fields go first in exactly the platform-returned order, the payload is
// the final part. onProgress receives 0-100 from bytes of the payload written.
func UploadStagedFile(target *StagedTarget, filename, mimeType string, content []byte, onProgress func(percent int)) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() {
			pw.CloseWithError(werr)
		}()

		for _, field := range target.Parameters {
			if werr = writer.WriteField(field.Name, field.Value); werr != nil {
				return
			}
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
		header.Set("Content-Type", mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			werr = err
			return
		}

		src := &progressReader{
			r:        bytes.NewReader(content),
			total:    int64(len(content)),
			onChange: onProgress,
		}
		if _, werr = io.Copy(part, src); werr != nil {
			return
		}
		werr = writer.Close()
	}()

	resp, err := req.Post(target.URL, pr, req.Header{
		"Content-Type": writer.FormDataContentType(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", &HTTPStatusError{StatusCode: 0}, err)
	}

	status := resp.Response().StatusCode
	if status < 200 || status >= 300 {
		return &HTTPStatusError{StatusCode: status}
	}

	return nil
}
