package dns

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	cname string
	hosts []string
	mx    []*net.MX
	err   error
}

func (f fakeResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	if f.cname == "" {
		return host + ".", nil
	}
	return f.cname, nil
}

func (f fakeResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	return f.hosts, f.err
}

func (f fakeResolver) LookupMX(_ context.Context, _ string) ([]*net.MX, error) {
	return f.mx, nil
}

func TestResolve(t *testing.T) {
	r := fakeResolver{
		cname: "edge.cdn.example.net.",
		hosts: []string{"93.184.216.34", "2606:2800:220:1::1"},
		mx:    []*net.MX{{Host: "mail.example.com.", Pref: 10}},
	}

	rec := Resolve(context.Background(), r, "example.com")

	assert.Equal(t, "example.com", rec.Domain)
	assert.Equal(t, "edge.cdn.example.net", rec.CNAME)
	assert.Equal(t, []string{"93.184.216.34"}, rec.A)
	assert.Equal(t, []string{"2606:2800:220:1::1"}, rec.AAAA)
	assert.Equal(t, []string{"mail.example.com"}, rec.MX)
	assert.True(t, rec.Resolved())
}

func TestResolve_Unresolvable(t *testing.T) {
	rec := Resolve(context.Background(), fakeResolver{err: errors.New("no such host")}, "nope.invalid")

	assert.False(t, rec.Resolved())
	assert.Empty(t, rec.CNAME)
	m := rec.Map()
	assert.Equal(t, []string{}, m["a"])
}
