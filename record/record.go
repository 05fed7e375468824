package record

import (
	"context"
	"strconv"
)

type Recorder interface {
	Commit(err error, fields ...Field)
}

type Factory interface {
	ActionRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context)
}

// Field is a named value attached to a record.
type Field struct {
	Name  string
	value interface{}
}

func StringField(name string, value string) Field {
	return Field{Name: name, value: value}
}

func BoolField(name string, value bool) Field {
	return Field{Name: name, value: value}
}

func IntField(name string, value int) Field {
	return Field{Name: name, value: value}
}

func (f Field) Value() interface{} {
	return f.value
}

func (f Field) StringValue() string {
	switch v := f.value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func ChainFactory(factories ...Factory) Factory {
	return chainFactory(factories)
}

type chainFactory []Factory

func (cf chainFactory) ActionRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	records := make(chainRecorder, 0, len(cf))
	for _, f := range cf {
		var r Recorder
		r, ctx = f.ActionRecorder(ctx, name, fields...)
		records = append(records, r)
	}
	return records, ctx
}

type chainRecorder []Recorder

func (cr chainRecorder) Commit(err error, fields ...Field) {
	for _, rd := range cr {
		rd.Commit(err, fields...)
	}
}

// Do runs do inside a record named name and commits the error it returns.
func Do(ctx context.Context, factory Factory, name string, do func(ctx context.Context) error, fields ...Field) error {
	var (
		err error
		r   Recorder
	)
	r, ctx = factory.ActionRecorder(ctx, name, fields...)
	defer func() {
		r.Commit(err)
	}()
	err = do(ctx)
	return err
}

type skipRecorder struct{}

func (recorder skipRecorder) Commit(err error, fields ...Field) {}
