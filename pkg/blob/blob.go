package blob

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Config struct {
	Dir       string `yaml:"dir" envconfig:"MEDIA_DIR" default:"media"`
	URLPrefix string `yaml:"urlPrefix" envconfig:"MEDIA_URL_PREFIX" default:"/media"`
}

var ErrUnsupportedType = errors.New("file type not allowed")

var allowedExt = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

// Store keeps uploaded images on the local filesystem under random names.
type Store struct {
	dir    string
	prefix string
}

func NewStore(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir media")
	}
	return &Store{
		dir:    cfg.Dir,
		prefix: strings.TrimRight(cfg.URLPrefix, "/"),
	}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Prefix() string { return s.prefix }

func Allowed(filename string) bool {
	_, ok := allowedExt[ext(filename)]
	return ok
}

func ext(filename string) string {
	e := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(e, "."))
}

// Save writes r under a new name and returns the public reference.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if !Allowed(filename) {
		return "", ErrUnsupportedType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + "." + ext(filename)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "close file")
	}
	return s.prefix + "/" + name, nil
}

// Delete removes the file behind ref. Unknown references are ignored.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if ref == "" || !strings.HasPrefix(ref, s.prefix+"/") {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	name := path.Base(ref)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove file")
	}
	return nil
}
