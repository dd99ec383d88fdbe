package uploadsvc

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vitccacm/recruitment-portal/core"
)

// Service stores submitted files and hands back a path usable later to
// serve them.
type Service interface {
	Save(file *multipart.FileHeader, subdir string) (string, error)
	Remove(path string) error
}

type localService struct {
	rootDir string
}

var _ Service = (*localService)(nil)

// NewLocalService stores uploads on the local disk under conf.UploadDir.
func NewLocalService(conf *core.Config) *localService {
	return &localService{rootDir: conf.UploadDir}
}

// Save copies the upload under rootDir/subdir with a random file name,
// keeping the original extension. The returned path is relative to
// rootDir.
func (svc localService) Save(file *multipart.FileHeader, subdir string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	dir := filepath.Join(svc.rootDir, subdir)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing upload file")
	}
	return filepath.Join(subdir, name), nil
}

// Remove deletes a previously saved upload; path is relative to rootDir.
func (svc localService) Remove(path string) error {
	if err := os.Remove(filepath.Join(svc.rootDir, path)); err != nil {
		return errors.Wrap(err, "removing upload file")
	}
	return nil
}

// StoredPaths lists the paths the mock currently holds: every Save adds
// one, every Remove drops one. Tests inspect it to check file cleanup.
var StoredPaths = make([]string, 0)

type serviceMock struct{}

var _ Service = (*serviceMock)(nil)

// NewServiceMock discards file contents and fabricates paths.
func NewServiceMock() *serviceMock {
	return &serviceMock{}
}

func (serviceMock) Save(file *multipart.FileHeader, subdir string) (string, error) {
	path := filepath.Join(subdir, file.Filename)
	StoredPaths = append(StoredPaths, path)
	return path, nil
}

func (serviceMock) Remove(path string) error {
	for i, stored := range StoredPaths {
		if stored == path {
			StoredPaths = append(StoredPaths[:i], StoredPaths[i+1:]...)
			break
		}
	}
	return nil
}

// ClearStoredPaths empties the recorded store between tests.
func ClearStoredPaths() {
	StoredPaths = StoredPaths[:0]
}
