package imap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// parsedBody holds the decoded pieces of one MIME message.
type parsedBody struct {
	text        string
	html        string
	attachments []attachmentPart
}

type attachmentPart struct {
	filename string
	mimeType string
	data     []byte
}

// parseRawMessage decodes a raw RFC 822 message into text, HTML, and
// attachment parts.
func parseRawMessage(raw []byte) (*parsedBody, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	out := &parsedBody{}
	err = walkPart(
		msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"),
		msg.Header.Get("Content-Disposition"),
		msg.Body,
		out,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walkPart recursively descends multipart containers and collects leaf
// parts. The first text/plain and text/html leaves win; any part carrying
// a filename is treated as an attachment.
func walkPart(contentType, encoding, disposition string, body io.Reader, out *parsedBody) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
		params = nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart section missing boundary")
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read multipart section: %w", err)
			}
			err = walkPart(
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				part.Header.Get("Content-Disposition"),
				part,
				out,
			)
			if err != nil {
				return err
			}
		}
	}

	data, err := io.ReadAll(decodeTransfer(body, encoding))
	if err != nil {
		return fmt.Errorf("failed to decode part body: %w", err)
	}

	if filename := partFilename(disposition, params); filename != "" {
		out.attachments = append(out.attachments, attachmentPart{
			filename: filename,
			mimeType: mediaType,
			data:     data,
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		if out.text == "" {
			out.text = strings.TrimSpace(string(data))
		}
	case "text/html":
		if out.html == "" {
			out.html = string(data)
		}
	}
	return nil
}

// decodeTransfer wraps the reader with the decoder named by the
// Content-Transfer-Encoding header. 7bit and 8bit pass through.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newBase64CleanReader(r))
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// partFilename extracts a filename from the Content-Disposition header,
// falling back to the Content-Type name parameter.
func partFilename(disposition string, typeParams map[string]string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return typeParams["name"]
}

// base64CleanReader strips line breaks so wrapped base64 bodies decode
// cleanly through the standard decoder.
type base64CleanReader struct {
	r io.Reader
}

func newBase64CleanReader(r io.Reader) io.Reader {
	return &base64CleanReader{r: r}
}

func (c *base64CleanReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		kept := 0
		for i := 0; i < n; i++ {
			if p[i] == '\r' || p[i] == '\n' {
				continue
			}
			p[kept] = p[i]
			kept++
		}
		n = kept
	}
	if n == 0 && err == nil {
		return c.Read(p)
	}
	return n, err
}
