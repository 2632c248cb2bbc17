package types

// PubSubMessage is the envelope a Pub/Sub-triggered CloudEvent carries.
// For the resolver function, Message.Data holds a JSON-encoded
// ResolveRequest; the JSON codec handles the base64 transport encoding.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}
