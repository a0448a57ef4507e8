package evaluator

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type Dataset string

const (
	MNIST  Dataset = "mnist"
	KMNIST Dataset = "kmnist"
)

func Datasets() []Dataset {
	return []Dataset{MNIST, KMNIST}
}

func ParseDataset(s string) (Dataset, error) {
	for _, d := range Datasets() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid dataset %q (choose from mnist, kmnist)", s)
}

const (
	idxImagesMagic = 0x00000803
	idxLabelsMagic = 0x00000801

	testImagesFile = "t10k-images-idx3-ubyte"
	testLabelsFile = "t10k-labels-idx1-ubyte"
)

// Split is one partition of a dataset with pixels scaled to [0,1].
type Split struct {
	Rows, Cols int
	Images     [][]float32
	Labels     []int
}

func (s *Split) Len() int {
	return len(s.Labels)
}

// Batch is a contiguous slice of a Split.
type Batch struct {
	Rows, Cols int
	Images     [][]float32
	Labels     []int
}

// Batches splits s into batches of at most size samples, preserving order.
func (s *Split) Batches(size int) []Batch {
	if size <= 0 {
		size = max(s.Len(), 1)
	}
	out := make([]Batch, 0, (s.Len()+size-1)/size)
	for start := 0; start < s.Len(); start += size {
		end := min(start+size, s.Len())
		out = append(out, Batch{
			Rows:   s.Rows,
			Cols:   s.Cols,
			Images: s.Images[start:end],
			Labels: s.Labels[start:end],
		})
	}
	return out
}

// DatasetProvider yields the test split of a named dataset.
type DatasetProvider interface {
	TestSplit(ctx context.Context, ds Dataset) (*Split, error)
}

// IDXProvider reads the classic IDX test files from <root>/<dataset>/,
// gzip compressed or not.
type IDXProvider struct {
	fs   afero.Fs
	root string
}

func NewIDXProvider(fs afero.Fs, root string) *IDXProvider {
	return &IDXProvider{fs: fs, root: root}
}

func (p *IDXProvider) TestSplit(_ context.Context, ds Dataset) (*Split, error) {
	dir := filepath.Join(p.root, string(ds))

	images, rows, cols, err := p.readImages(dir)
	if err != nil {
		return nil, err
	}
	labels, err := p.readLabels(dir)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%s: %d images but %d labels", ds, len(images), len(labels))
	}
	return &Split{Rows: rows, Cols: cols, Images: images, Labels: labels}, nil
}

func (p *IDXProvider) open(dir, name string) (io.ReadCloser, error) {
	gz := filepath.Join(dir, name+".gz")
	if f, err := p.fs.Open(gz); err == nil {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "unable to decompress %s", gz)
		}
		return &gzipFile{Reader: zr, f: f}, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "unable to open %s", gz)
	}

	raw := filepath.Join(dir, name)
	f, err := p.fs.Open(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", raw)
	}
	return f, nil
}

type gzipFile struct {
	*gzip.Reader
	f afero.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

func (p *IDXProvider) readImages(dir string) ([][]float32, int, int, error) {
	rc, err := p.open(dir, testImagesFile)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rc.Close()
	r := bufio.NewReader(rc)

	var hdr struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, 0, 0, errors.Wrap(err, "unable to read image header")
	}
	if hdr.Magic != idxImagesMagic {
		return nil, 0, 0, fmt.Errorf("unexpected image file magic %#x", hdr.Magic)
	}

	size := int(hdr.Rows * hdr.Cols)
	buf := make([]byte, size)
	images := make([][]float32, hdr.Count)
	for i := range images {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, 0, errors.Wrapf(err, "unable to read image %d", i)
		}
		img := make([]float32, size)
		for j, b := range buf {
			img[j] = float32(b) / 255
		}
		images[i] = img
	}
	return images, int(hdr.Rows), int(hdr.Cols), nil
}

func (p *IDXProvider) readLabels(dir string) ([]int, error) {
	rc, err := p.open(dir, testLabelsFile)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	r := bufio.NewReader(rc)

	var hdr struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "unable to read label header")
	}
	if hdr.Magic != idxLabelsMagic {
		return nil, fmt.Errorf("unexpected label file magic %#x", hdr.Magic)
	}

	buf := make([]byte, hdr.Count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "unable to read labels")
	}
	labels := make([]int, len(buf))
	for i, b := range buf {
		labels[i] = int(b)
	}
	return labels, nil
}
