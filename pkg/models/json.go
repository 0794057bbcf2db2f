package models

import "encoding/json"

func marshalJSON(v any) ([]byte, error)       { return json.Marshal(v) }
func unmarshalJSON(b []byte, v any) error     { return json.Unmarshal(b, v) }
