package oltpbench

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/hhkbp2/go-strftime"
	"gopkg.in/yaml.v2"
)

type Properties map[string]string

func NewProperties() Properties {
	return make(Properties)
}

func (self Properties) Add(key, value string) {
	self[key] = value
}

func (self Properties) Merge(other map[string]string) {
	for k, v := range other {
		self[k] = v
	}
}

func (self Properties) Get(key string) string {
	v, _ := self[key]
	return v
}

func (self Properties) GetDefault(key string, defaultValue string) string {
	if v, ok := self[key]; ok {
		return v
	}
	return defaultValue
}

func (self Properties) GetInt64(key string, defaultValue string) (int64, error) {
	v, err := strconv.ParseInt(self.GetDefault(key, defaultValue), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid property %s: %w", key, err)
	}
	return v, nil
}

func (self Properties) GetFloat64(key string, defaultValue string) (float64, error) {
	v, err := strconv.ParseFloat(self.GetDefault(key, defaultValue), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid property %s: %w", key, err)
	}
	return v, nil
}

func (self Properties) GetBool(key string, defaultValue string) (bool, error) {
	v, err := strconv.ParseBool(self.GetDefault(key, defaultValue))
	if err != nil {
		return false, fmt.Errorf("invalid property %s: %w", key, err)
	}
	return v, nil
}

// LoadProperties reads a YAML property file. Nested maps are flattened
// into dotted keys, so
//
//	mysql:
//	  host: 10.0.0.1
//
// is the same as "mysql.host: 10.0.0.1".
func LoadProperties(filename string) (Properties, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseProperties(content)
}

func ParseProperties(content []byte) (Properties, error) {
	raw := make(map[interface{}]interface{})
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("invalid property file: %w", err)
	}
	props := NewProperties()
	flattenProperties(props, "", raw)
	return props, nil
}

func flattenProperties(props Properties, prefix string, m map[interface{}]interface{}) {
	for k, v := range m {
		key := fmt.Sprint(k)
		if len(prefix) > 0 {
			key = prefix + "." + key
		}
		switch value := v.(type) {
		case map[interface{}]interface{}:
			flattenProperties(props, key, value)
		case nil:
			props.Add(key, "")
		default:
			props.Add(key, fmt.Sprint(value))
		}
	}
}

// ExpandFileName expands strftime patterns in name, e.g.
// "oltp-%Y%m%d-%H%M%S.json".
func ExpandFileName(name string, t time.Time) string {
	return strftime.Format(name, t)
}

func NanosecondToMicrosecond(nanos int64) int64 {
	return nanos / 1000
}

func MicrosecondToMillisecond(micros float64) float64 {
	return micros / 1000.0
}

func SecondToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

func Output(format string, args ...interface{}) {
	Foutput(OutputDest, format, args...)
}

func Foutput(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
	fmt.Fprintln(w, "")
}

func OutputProperties(p Properties) {
	Output("***************** properties *****************")
	if p != nil {
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			Output("\"%s\"=\"%s\"", k, p[k])
		}
	}
	Output("**********************************************")
}

func ExitOnError(format string, args ...interface{}) {
	Sync()
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}
