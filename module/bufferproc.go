// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package module

import (
	"strings"

	"code.hybscloud.com/flowmesh/record"
)

// BufferProcessor is the narrower callback set a byte-buffer-in,
// byte-buffer-out module implements (§4.1 "buffer-processing adapter").
// BufferAdapter wraps an implementation into a full Adapter so the
// compiler and scheduler never need to know the difference.
type BufferProcessor interface {
	// Options parses the kid's known option string (the remainder of
	// argv after the module name) into whatever the processor needs.
	Options(opt string) error
	// ProcessBuffer transforms in into zero or more output buffers.
	// PassNotFound controls behavior when the processor declines a
	// buffer entirely (Flags.ProcBufferPassNotFound): true means the
	// input buffer is forwarded unmodified, false means it is dropped.
	ProcessBuffer(in []byte) (out [][]byte, matched bool, err error)
}

// bufferAdapter adapts a BufferProcessor to the generic Adapter contract.
type bufferAdapter struct {
	name         string
	newProc      func() BufferProcessor
	passNotFound bool
	outBytes     *record.DataType
}

// NewBufferAdapter builds a generic Adapter around a BufferProcessor
// factory. outBytes is the DataType used to wrap each output buffer the
// processor produces.
func NewBufferAdapter(name string, outBytes *record.DataType, passNotFound bool, newProc func() BufferProcessor) Adapter {
	return &bufferAdapter{name: name, newProc: newProc, passNotFound: passNotFound, outBytes: outBytes}
}

type bufferInstance struct {
	proc BufferProcessor
}

func (a *bufferAdapter) Init(argv []string, _ Sources, _ *record.DataTypeTable) (Instance, error) {
	proc := a.newProc()
	opt := strings.Join(argv, " ")
	if err := proc.Options(opt); err != nil {
		return nil, err
	}
	return &bufferInstance{proc: proc}, nil
}

func (a *bufferAdapter) InputSet(inst Instance, inputType *record.DataType, port record.Label, outlist *[]Outtype, slot int, _ *record.DataTypeTable) (ProcessFunc, error) {
	if inputType == nil || inputType.Name != "bytes" {
		return nil, NewUnsupportedInputError(a.name, typeName(inputType), port)
	}
	*outlist = append(*outlist, Outtype{Type: a.outBytes})

	process := func(i Instance, r *record.Record, out Doutput, slot int) error {
		bi := i.(*bufferInstance)
		in, _ := r.Payload.([]byte)
		outs, matched, err := bi.proc.ProcessBuffer(in)
		if err != nil {
			return err
		}
		if !matched {
			if a.passNotFound {
				fwd := record.New(a.outBytes, false)
				fwd.Payload = in
				out.Emit(fwd, Outtype{Type: a.outBytes})
			}
			return nil
		}
		for _, b := range outs {
			emitted := record.New(a.outBytes, false)
			emitted.Payload = b
			out.Emit(emitted, Outtype{Type: a.outBytes})
		}
		return nil
	}
	return process, nil
}

func (a *bufferAdapter) InitFinish(Instance) error { return nil }

func (a *bufferAdapter) Destroy(Instance) error { return nil }

func typeName(dt *record.DataType) string {
	if dt == nil {
		return "<nil>"
	}
	return dt.Name
}
