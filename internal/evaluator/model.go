package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ModelType string

const (
	FeedForward ModelType = "ff"
	CNN         ModelType = "cnn"
)

func ModelTypes() []ModelType {
	return []ModelType{FeedForward, CNN}
}

func ParseModelType(s string) (ModelType, error) {
	for _, m := range ModelTypes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid model type %q (choose from ff, cnn)", s)
}

// ModelName is the name the pretrained model for ds/mt is served under.
func ModelName(ds Dataset, mt ModelType) string {
	return string(ds) + "-" + string(mt)
}

// Scorer returns the predicted class of every image in a batch.
type Scorer interface {
	Predict(ctx context.Context, b Batch) ([]int, error)
}

// KServeScorer calls a pretrained model through the KServe V2 inference protocol.
type KServeScorer struct {
	client    *http.Client
	url       string
	inputName string
	modelType ModelType
}

func NewKServeScorer(httpClient *http.Client, baseURL string, ds Dataset, mt ModelType) *KServeScorer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &KServeScorer{
		client:    httpClient,
		url:       strings.TrimSuffix(normalizeURL(baseURL), "/") + "/v2/models/" + ModelName(ds, mt) + "/infer",
		inputName: "input-0",
		modelType: mt,
	}
}

type v2Tensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type v2Request struct {
	Inputs []v2Tensor `json:"inputs"`
}

type v2Response struct {
	Outputs []v2Tensor `json:"outputs"`
}

func (k *KServeScorer) shape(b Batch) []int {
	if k.modelType == CNN {
		return []int{len(b.Images), 1, b.Rows, b.Cols}
	}
	return []int{len(b.Images), b.Rows * b.Cols}
}

func (k *KServeScorer) Predict(ctx context.Context, b Batch) ([]int, error) {
	if len(b.Images) == 0 {
		return nil, nil
	}

	data := make([]float32, 0, len(b.Images)*b.Rows*b.Cols)
	for _, img := range b.Images {
		data = append(data, img...)
	}

	bodyBytes, err := json.Marshal(v2Request{Inputs: []v2Tensor{{
		Name:     k.inputName,
		Shape:    k.shape(b),
		Datatype: "FP32",
		Data:     data,
	}}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("kserve v2 inference failed: status=%d body=%s", resp.StatusCode, string(msg))
	}

	var v2Resp v2Response
	if err := json.NewDecoder(resp.Body).Decode(&v2Resp); err != nil {
		return nil, err
	}
	if len(v2Resp.Outputs) == 0 {
		return nil, fmt.Errorf("kserve v2 response has no outputs")
	}

	return argmaxRows(v2Resp.Outputs[0].Data, len(b.Images))
}

// argmaxRows treats scores as a row-major [rows, n/rows] matrix.
func argmaxRows(scores []float32, rows int) ([]int, error) {
	if rows == 0 || len(scores) == 0 || len(scores)%rows != 0 {
		return nil, fmt.Errorf("cannot split %d scores into %d rows", len(scores), rows)
	}
	classes := len(scores) / rows
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		row := scores[r*classes : (r+1)*classes]
		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		out[r] = best
	}
	return out, nil
}

func normalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://" + raw
}
