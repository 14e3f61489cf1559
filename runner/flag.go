package runner

import (
	"flag"
)

// CreateArgsFlags registers one string flag per config key on f.
func CreateArgsFlags(f *flag.FlagSet) map[string]TomlInfo {
	c := Config{}
	m := flatConfig(c)
	for k, v := range m {
		f.StringVar(v.Value, k, "", v.usage)
	}
	return m
}
