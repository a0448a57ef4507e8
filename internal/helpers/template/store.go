package template

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"classification-dispatcher/internal/helpers/kube/client"
)

const jobKind = "Job"

var (
	ErrNotFound = errors.New("job template not found")
	ErrInvalid  = errors.New("job template is invalid")
)

// Store reads job templates from a filesystem. Templates are read on every
// Load, nothing is cached.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Path resolves ref against the store directory into an absolute path.
func (s *Store) Path(ref string) (string, error) {
	p := ref
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.dir, ref)
	}
	return filepath.Abs(p)
}

func (s *Store) Load(ref string) (*batchv1.Job, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve template path %q", ref)
	}

	fi, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "Job YAML file not found at: %s", path)
		}
		return nil, errors.Wrapf(err, "unable to stat %s", path)
	}
	if fi.IsDir() {
		return nil, errors.Wrapf(ErrNotFound, "Job YAML path is a directory: %s", path)
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	return Parse(path, data)
}

// Parse decodes a YAML job manifest. name is only used in error messages.
func Parse(name string, data []byte) (*batchv1.Job, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalid, "Error parsing YAML file '%s': %v", name, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}")) {
		return nil, errors.Wrapf(ErrInvalid, "Job YAML file is empty or invalid: %s", name)
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON(raw); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "Error parsing YAML file '%s': %v", name, err)
	}
	if obj.GetKind() != jobKind {
		return nil, errors.Wrapf(ErrInvalid, "Job YAML file '%s' has kind %q, expected %q", name, obj.GetKind(), jobKind)
	}
	if _, ok := obj.Object["spec"]; !ok {
		return nil, errors.Wrapf(ErrInvalid, "Job YAML file '%s' has no spec", name)
	}

	job := &batchv1.Job{}
	if err := client.FromUnstructured(obj.Object, job); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "Error parsing YAML file '%s': %v", name, err)
	}
	return job, nil
}
