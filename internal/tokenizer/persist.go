package tokenizer

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"strconv"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/normalizer"
	"github.com/born-ml/tokenforge/internal/pretokenizer"
	"github.com/born-ml/tokenforge/internal/serialization"
)

// Metadata keys written from the training report.
const (
	MetaStopReason  = "bpe.stop_reason"
	MetaCompression = "bpe.compression_ratio"
)

// Save writes the pipeline to path as a .tfm container. metadata is stored in the header next to
// the training report of the model, if any. It returns the header that was written.
func (p *Pipeline) Save(path string, metadata map[string]string) (serialization.Header, error) {
	header, data, err := p.container(metadata)
	if err != nil {
		return serialization.Header{}, err
	}
	return serialization.WriteFile(path, header, data)
}

// SaveTo writes the pipeline as a .tfm container to w.
func (p *Pipeline) SaveTo(w io.Writer, metadata map[string]string) (serialization.Header, error) {
	header, data, err := p.container(metadata)
	if err != nil {
		return serialization.Header{}, err
	}
	return serialization.WriteTo(w, header, data)
}

func (p *Pipeline) container(metadata map[string]string) (serialization.Header, []byte, error) {
	m, err := p.bpeModel()
	if err != nil {
		return serialization.Header{}, nil, err
	}

	normalizers, err := normalizer.Names(p.normalizer)
	if err != nil {
		return serialization.Header{}, nil, fmt.Errorf("cannot save pipeline: %w", err)
	}
	preTokenizer, ok := pretokenizer.Name(p.pretokenizer)
	if !ok {
		return serialization.Header{}, nil, fmt.Errorf("cannot save pipeline: pre-tokenizer %T has no persisted name", p.pretokenizer)
	}

	data, err := json.Marshal(m.Export())
	if err != nil {
		return serialization.Header{}, nil, fmt.Errorf("failed to marshal model: %w", err)
	}

	meta := make(map[string]string, len(metadata)+2)
	if m.Report.StopReason != "" {
		meta[MetaStopReason] = m.Report.StopReason
		meta[MetaCompression] = strconv.FormatFloat(m.Report.CompressionRatio, 'f', 4, 64)
	}
	maps.Copy(meta, metadata)

	header := serialization.Header{
		ModelType: string(KindBPE),
		Pipeline: serialization.PipelineMeta{
			Normalizers:  normalizers,
			PreTokenizer: preTokenizer,
		},
		VocabSize:     m.VocabSize(),
		Merges:        m.NumMerges(),
		SpecialTokens: m.SpecialTokens(),
		Metadata:      meta,
	}
	return header, data, nil
}

func (p *Pipeline) bpeModel() (*BPEModel, error) {
	if p.model == nil {
		return nil, ErrUntrained
	}
	m, ok := p.model.(*BPEModel)
	if !ok {
		return nil, fmt.Errorf("cannot save %s model of type %T", p.model.Kind(), p.model)
	}
	return m, nil
}

// Load reads a pipeline saved with Save. The checksum and the model are verified.
func Load(path string) (*Pipeline, error) {
	r, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	data, err := r.Data()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	p, err := fromContainer(r.Header(), data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p, nil
}

// LoadFrom reads a pipeline written with SaveTo.
func LoadFrom(r io.Reader) (*Pipeline, error) {
	header, data, err := serialization.ReadFrom(r, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return fromContainer(header, data)
}

func fromContainer(h serialization.Header, data []byte) (*Pipeline, error) {
	if Kind(h.ModelType) != KindBPE {
		return nil, fmt.Errorf("unsupported model type %q", h.ModelType)
	}

	norm, err := normalizer.FromNames(h.Pipeline.Normalizers)
	if err != nil {
		return nil, err
	}
	pre, ok := pretokenizer.FromName(h.Pipeline.PreTokenizer)
	if !ok {
		return nil, fmt.Errorf("unknown pre-tokenizer %q", h.Pipeline.PreTokenizer)
	}

	var export bpe.Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	m, err := bpe.NewModel(export)
	if err != nil {
		return nil, err
	}
	if m.VocabSize() != h.VocabSize || m.NumMerges() != h.Merges {
		return nil, fmt.Errorf("%w: header declares %d symbols and %d merges, model has %d and %d",
			bpe.ErrInvalidModel, h.VocabSize, h.Merges, m.VocabSize(), m.NumMerges())
	}

	return NewBuilder().
		WithNormalizer(norm).
		WithPreTokenizer(pre).
		WithModel(NewBPEModel(m)).
		Build(), nil
}
