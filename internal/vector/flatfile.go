package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// On-disk layout written by faiss::write_index for IndexFlat (all little endian):
//
//	fourcc      [4]byte  "IxFI" (inner product) or "IxF2" (L2)
//	d           int32
//	ntotal      int64
//	dummy       int64 x2 (1<<20)
//	is_trained  uint8
//	metric_type int32    (+ float32 metric_arg when metric_type > 1)
//	size        uint64   number of float32 values (ntotal*d)
//	data        float32 x size
const (
	fourccFlatIP = "IxFI"
	fourccFlatL2 = "IxF2"

	metricInnerProduct = 0
	headerDummy        = int64(1 << 20)
)

type flatHeader struct {
	Dimensions int32
	Total      int64
	Dummy1     int64
	Dummy2     int64
	IsTrained  uint8
	MetricType int32
}

// writeFlatIP writes vectors as a FAISS IndexFlatIP file readable by libfaiss and LoadMemoryIndex.
func writeFlatIP(w io.Writer, dimensions int, vectors [][]float32) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fourccFlatIP); err != nil {
		return fmt.Errorf("write fourcc: %w", err)
	}
	hdr := flatHeader{
		Dimensions: int32(dimensions),
		Total:      int64(len(vectors)),
		Dummy1:     headerDummy,
		Dummy2:     headerDummy,
		IsTrained:  1,
		MetricType: metricInnerProduct,
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(vectors)*dimensions)); err != nil {
		return fmt.Errorf("write size: %w", err)
	}
	buf := make([]byte, dimensions*4)
	for i, vec := range vectors {
		if len(vec) != dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), dimensions)
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// readFlatIP decodes a FAISS IndexFlatIP file. L2 and other index types are rejected
// since their scores are not inner-product similarities.
func readFlatIP(r io.Reader) (int, [][]float32, error) {
	br := bufio.NewReader(r)
	var fourcc [4]byte
	if _, err := io.ReadFull(br, fourcc[:]); err != nil {
		return 0, nil, fmt.Errorf("read fourcc: %w", err)
	}
	switch string(fourcc[:]) {
	case fourccFlatIP:
	case fourccFlatL2:
		return 0, nil, fmt.Errorf("unsupported index: IndexFlatL2 (inner product index required)")
	default:
		return 0, nil, fmt.Errorf("unsupported index type %q (only IndexFlatIP can be loaded without libfaiss)", string(fourcc[:]))
	}

	var hdr flatHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.MetricType != metricInnerProduct {
		return 0, nil, fmt.Errorf("unsupported metric type %d", hdr.MetricType)
	}
	if hdr.Dimensions <= 0 || hdr.Total < 0 {
		return 0, nil, fmt.Errorf("invalid header: d=%d ntotal=%d", hdr.Dimensions, hdr.Total)
	}
	var size uint64
	if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
		return 0, nil, fmt.Errorf("read size: %w", err)
	}
	dim := int(hdr.Dimensions)
	if size != uint64(hdr.Total)*uint64(dim) {
		return 0, nil, fmt.Errorf("corrupt index: %d values for %d vectors of dimension %d", size, hdr.Total, dim)
	}

	vectors := make([][]float32, 0, hdr.Total)
	buf := make([]byte, dim*4)
	for i := int64(0); i < hdr.Total; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return 0, nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	return dim, vectors, nil
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
