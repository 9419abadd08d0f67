// Package image serializes lifted functions to and from compact CBOR
// function images, the on-disk interchange format between the translation
// front end and the simplification scheduler.
package image

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/relift/ir"
)

// FormatVersion is bumped whenever the image layout changes incompatibly.
const FormatVersion = 1

// FunctionImage is the serialized form of one lifted function.
type FunctionImage struct {
	Version  byte           `cbor:"1,keyasint"`
	Name     string         `cbor:"2,keyasint"`
	Varnodes []VarnodeImage `cbor:"3,keyasint,omitempty"`
	Ops      []OpImage      `cbor:"4,keyasint,omitempty"`
}

// VarnodeImage is one serialized varnode. Ref is the image-local reference
// used by ops; it carries no meaning outside the image.
type VarnodeImage struct {
	Ref      uint32 `cbor:"1,keyasint"`
	Size     int    `cbor:"2,keyasint"`
	Constant bool   `cbor:"3,keyasint,omitempty"`
	Value    uint64 `cbor:"4,keyasint,omitempty"`
}

// OpImage is one serialized operation.
type OpImage struct {
	Code   byte     `cbor:"1,keyasint"`
	Output uint32   `cbor:"2,keyasint,omitempty"` // varnode ref + 1; 0 = none
	Inputs []uint32 `cbor:"3,keyasint,omitempty"` // varnode refs
}

// cborEncMode uses canonical mode so identical functions always encode to
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Capture builds the serialized form of a function's live graph.
func Capture(fn *ir.Function) *FunctionImage {
	img := &FunctionImage{Version: FormatVersion, Name: fn.Name()}

	refs := make(map[*ir.Varnode]uint32)
	ref := func(vn *ir.Varnode) uint32 {
		if r, ok := refs[vn]; ok {
			return r
		}
		r := uint32(len(img.Varnodes))
		refs[vn] = r
		img.Varnodes = append(img.Varnodes, VarnodeImage{
			Ref:      r,
			Size:     vn.Size(),
			Constant: vn.IsConstant(),
			Value:    vn.Value(),
		})
		return r
	}

	iter := fn.Ops()
	for iter.HasMore() {
		op := iter.Current()
		iter.Advance()
		oi := OpImage{Code: byte(op.Code())}
		if out := op.Output(); out != nil {
			oi.Output = ref(out) + 1
		}
		for i := 0; i < op.NumInputs(); i++ {
			oi.Inputs = append(oi.Inputs, ref(op.Input(i)))
		}
		img.Ops = append(img.Ops, oi)
	}
	return img
}

// Restore rebuilds a function graph from its serialized form.
func Restore(img *FunctionImage) (*ir.Function, error) {
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("image: unsupported version %d", img.Version)
	}
	fn := ir.NewFunction(img.Name)

	vns := make([]*ir.Varnode, len(img.Varnodes))
	for i, vi := range img.Varnodes {
		if uint32(i) != vi.Ref {
			return nil, fmt.Errorf("image: varnode ref %d out of order", vi.Ref)
		}
		if vi.Constant {
			vns[i] = fn.NewConstant(vi.Size, vi.Value)
		} else {
			vns[i] = fn.NewUnique(vi.Size)
		}
	}

	lookup := func(r uint32) (*ir.Varnode, error) {
		if int(r) >= len(vns) {
			return nil, fmt.Errorf("image: dangling varnode ref %d", r)
		}
		return vns[r], nil
	}

	for _, oi := range img.Ops {
		var out *ir.Varnode
		if oi.Output != 0 {
			var err error
			if out, err = lookup(oi.Output - 1); err != nil {
				return nil, err
			}
		}
		inputs := make([]*ir.Varnode, len(oi.Inputs))
		for i, r := range oi.Inputs {
			var err error
			if inputs[i], err = lookup(r); err != nil {
				return nil, err
			}
		}
		fn.NewOp(ir.OpCode(oi.Code), out, inputs...)
	}
	return fn, nil
}

// Marshal serializes a function image to CBOR bytes.
func Marshal(img *FunctionImage) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes a function image from CBOR bytes.
func Unmarshal(data []byte) (*FunctionImage, error) {
	var img FunctionImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal function image: %w", err)
	}
	return &img, nil
}

// WriteFile captures a function and writes its image to path.
func WriteFile(path string, fn *ir.Function) error {
	data, err := Marshal(Capture(fn))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a function image from path and rebuilds the graph.
func ReadFile(path string) (*ir.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return Restore(img)
}
