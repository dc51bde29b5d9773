package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"job-portal/internal/logger"
	"job-portal/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// URLPrefix is where stored files are exposed.
const URLPrefix = "/uploads"

var (
	ErrNotFound        = errors.New("file not found")
	ErrOutsideRoot     = errors.New("path escapes upload directory")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Store keeps uploaded files in a single directory and serves them back.
type Store struct {
	root     string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}

	return &Store{root: root, maxBytes: maxBytes}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Resolve maps a request path below URLPrefix to a regular file inside the
// root. Dotfiles and directories are reported as missing. Anything that
// resolves outside the root, including through symlinks, is rejected.
func (s *Store) Resolve(name string) (string, error) {
	if strings.ContainsAny(name, "\\\x00") {
		return "", ErrOutsideRoot
	}

	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", ErrNotFound
	}
	for _, segment := range strings.Split(clean[1:], "/") {
		if strings.HasPrefix(segment, ".") {
			return "", ErrNotFound
		}
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if !s.within(full) {
		return "", ErrOutsideRoot
	}

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve %s: %w", clean, err)
	}
	if !s.within(resolved) {
		return "", ErrOutsideRoot
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", ErrNotFound
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return resolved, nil
}

func (s *Store) within(p string) bool {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Serve answers GET and HEAD requests for /uploads/*filepath. Missing files
// fall through to the not-found handler.
func (s *Store) Serve(c *gin.Context) {
	p, err := s.Resolve(c.Param("filepath"))
	if err != nil {
		if errors.Is(err, ErrOutsideRoot) {
			logger.WithField("path", c.Request.URL.Path).Warn("Rejected upload path outside root")
		}
		pipeline.NotFound(c)
		return
	}

	f, err := os.Open(p)
	if err != nil {
		pipeline.NotFound(c)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		_ = c.Error(fmt.Errorf("failed to stat upload: %w", err))
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// Save stores an uploaded file under a random name and returns its public
// URL.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dstPath := filepath.Join(s.root, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}

	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	written, err := io.Copy(dst, reader)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dstPath)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return URLPrefix + "/" + name, nil
}

// Delete removes a file previously returned by Save. Unknown URLs are
// ignored.
func (s *Store) Delete(publicURL string) error {
	name, ok := strings.CutPrefix(publicURL, URLPrefix+"/")
	if !ok {
		return nil
	}
	p, err := s.Resolve(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return os.Remove(p)
}
