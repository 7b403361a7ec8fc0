package parser

import "encoding/json"

// JSONParser is the JSON implementation of Parser.
type JSONParser struct{}

func (p *JSONParser) Marshal(i any) ([]byte, error) {
	return json.Marshal(i)
}

func (p *JSONParser) Unmarshal(b []byte, i any) error {
	return json.Unmarshal(b, i)
}
