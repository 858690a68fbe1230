package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	p, err := NewProducer(nil, "attestor")
	assert.Nil(t, p)
	assert.ErrorContains(t, err, "no brokers")
}
