package main

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/host"
)

// objectFactory creates host objects of declared types.
type objectFactory interface {
	NewObject(typ string, fields map[string]any) (*host.Object, error)
}

func parseArgs(f objectFactory, args []string) ([]any, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := parseArg(f, arg)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		values[i] = v
	}
	return values, nil
}

func parseArg(f objectFactory, s string) (any, error) {
	if typ, body, ok := strings.Cut(s, "{"); ok && strings.HasSuffix(body, "}") && typ != "" {
		fields, err := parseFields(strings.TrimSuffix(body, "}"))
		if err != nil {
			return nil, errors.Wrapf(err, "object %s", typ)
		}
		return f.NewObject(typ, fields)
	}
	return parseScalar(s), nil
}

func parseFields(s string) (map[string]any, error) {
	fields := make(map[string]any)
	if strings.TrimSpace(s) == "" {
		return fields, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Newf("field %q: want name=value", pair)
		}
		fields[k] = parseScalar(strings.TrimSpace(v))
	}
	return fields, nil
}

func parseScalar(s string) any {
	switch s {
	case "nil":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return strings.TrimPrefix(s, "str:")
}
