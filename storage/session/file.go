package sessionstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bbpbat/portal/core/session"
)

var NowFunc = time.Now // mockable

type fileData struct {
	Tokens  session.Tokens `yaml:"tokens"`
	SavedAt time.Time      `yaml:"saved_at"`
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	path string
}

var _ session.Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Path() string { return fs.path }

func (fs *FileStore) Load() (*session.Session, error) {
	data, err := ioutil.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, session.ErrNoSession
		}
		return nil, errors.Wrap(err, "reading session file")
	}
	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, errors.Wrap(err, "decoding session file")
	}
	if fd.Tokens.Access == "" {
		return nil, session.ErrNoSession
	}
	return session.New(fd.Tokens), nil
}

func (fs *FileStore) Save(sess *session.Session) error {
	if !sess.IsAuthenticated() {
		return fs.Clear()
	}
	data, err := yaml.Marshal(fileData{Tokens: sess.Tokens(), SavedAt: NowFunc().UTC()})
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}

	// write-then-rename so a crash never leaves half a file behind
	tmp := fs.path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, "writing session file")
	}
	return errors.Wrap(os.Rename(tmp, fs.path), "writing session file")
}

func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
