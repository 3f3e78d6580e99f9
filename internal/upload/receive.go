package upload

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
)

// receiver streams the upload field of a multipart request into a temp file.
type receiver struct {
	field        string
	tempDir      string
	maxFileBytes int64
}

// receive returns nil when the request carries no file part under the
// configured field. Any other outcome, including transport failures, is
// reported through UploadedFile.Error.
func (rc receiver) receive(r *http.Request) *UploadedFile {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &UploadedFile{Error: transportCode(err)}
		}

		name, isFile := rawFileName(part)
		if !isFile || part.FormName() != rc.field {
			part.Close()
			continue
		}

		up := &UploadedFile{OriginalName: name}
		if _, ok := SanitizeBaseName(name); !ok {
			up.Error = CodeNoFile
			part.Close()
			return up
		}
		rc.spool(part, up)
		part.Close()
		return up
	}
}

func (rc receiver) spool(part *multipart.Part, up *UploadedFile) {
	f, err := os.CreateTemp(rc.tempDir, "upload-*")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			up.Error = CodeNoTmpDir
		} else {
			up.Error = CodeCantWrite
		}
		return
	}
	up.TempPath = f.Name()

	src := &trackedReader{r: part}
	var reader io.Reader = src
	if rc.maxFileBytes > 0 {
		reader = io.LimitReader(src, rc.maxFileBytes+1)
	}

	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	up.Size = n

	switch {
	case src.err != nil:
		up.Error = transportCode(src.err)
	case copyErr != nil, closeErr != nil:
		up.Error = CodeCantWrite
	case rc.maxFileBytes > 0 && n > rc.maxFileBytes:
		up.Error = CodeFormSize
	}
	if up.Error != CodeOK {
		os.Remove(up.TempPath)
		up.TempPath = ""
	}
}

// rawFileName reads the unsanitised filename parameter of the part. Part's
// own FileName already strips directories, which would hide what the
// client actually sent.
func rawFileName(p *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

func transportCode(err error) ErrorCode {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return CodeIniSize
	}
	return CodePartial
}

// trackedReader remembers the first read error that is not io.EOF so it
// can be told apart from write failures after io.Copy returns.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}

// EnsureTempDir creates the spool directory. Unlike the upload and processed
// directories it belongs to this service, so it is provisioned at startup.
func EnsureTempDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}
