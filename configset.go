package autotune

import (
	"io"

	"gopkg.in/yaml.v3"
)

// configDoc mirrors one YAML candidate entry for LoadConfigSet.
type configDoc struct {
	Kwargs             map[string]any `yaml:"kwargs"`
	NumWarps           int            `yaml:"num_warps"`
	NumStages          int            `yaml:"num_stages"`
	NumCTAs            int            `yaml:"num_ctas"`
	NumBuffersWarpSpec int            `yaml:"num_buffers_warp_spec"`
	NumConsumerGroups  int            `yaml:"num_consumer_groups"`
	RegDecProducer     int            `yaml:"reg_dec_producer"`
	RegIncConsumer     int            `yaml:"reg_inc_consumer"`
	MaxNReg            *int           `yaml:"maxnreg"`
}

// configSetDoc is the top-level YAML document shape: a bare list of
// candidate entries under a `configs:` key.
type configSetDoc struct {
	Configs []configDoc `yaml:"configs"`
}

// LoadConfigSet parses a YAML document describing a candidate grid into
// *Config values, for tunables whose candidate set is large enough to want
// external configuration rather than Go literals. num_warps, num_stages and
// num_ctas left unset in the document fall back to the same defaults
// NewConfig applies (NumWarps=4, NumStages=2, NumCTAs=1). YAML unmarshaling
// zero-fills missing ints, so an explicit 0 for one of these three fields is
// also replaced by its default.
func LoadConfigSet(r io.Reader) ([]*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc configSetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	configs := make([]*Config, 0, len(doc.Configs))
	for _, d := range doc.Configs {
		kwargs := d.Kwargs
		if kwargs == nil {
			kwargs = map[string]any{}
		}
		c, err := NewConfig(kwargs,
			WithNumWarps(orDefault(d.NumWarps, 4)),
			WithNumStages(orDefault(d.NumStages, 2)),
			WithNumCTAs(orDefault(d.NumCTAs, 1)),
			WithNumBuffersWarpSpec(d.NumBuffersWarpSpec),
			WithNumConsumerGroups(d.NumConsumerGroups),
			WithRegDecProducer(d.RegDecProducer),
			WithRegIncConsumer(d.RegIncConsumer),
		)
		if err != nil {
			return nil, err
		}
		if d.MaxNReg != nil {
			c.MaxNReg = d.MaxNReg
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
