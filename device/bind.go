package device

import (
	"context"

	"github.com/arloliu/go-plc/binding"
	"github.com/arloliu/go-plc/plc"
)

// ReadInto reads every field bound in table from dev and stores it into dst.
//
// Fields are read one after another in registration order; the first failure is returned
// and leaves the remaining fields of dst untouched.
func ReadInto[T any](ctx context.Context, dev *Device, table *binding.Table[T], dst *T) plc.Result[*T] {
	for _, e := range table.Entries() {
		var raw []byte
		if e.AsBool {
			r := dev.ReadBool(ctx, e.Address, 1)
			if !r.Success {
				return plc.Convert[*T](r)
			}
			raw = []byte{0}
			if r.Content[0] {
				raw[0] = 1
			}
		} else {
			r := dev.Read(ctx, e.Address, e.Words)
			if !r.Success {
				return plc.Convert[*T](r)
			}
			raw = r.Content
		}

		if err := table.Apply(e.Handle, dst, raw); err != nil {
			return fail[*T](dev, "ReadInto", e.Address, err)
		}
	}

	return plc.OK(dst)
}
