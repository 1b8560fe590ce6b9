// Package transport turns raw TCP byte streams into sequences of discrete
// wire messages. It owns connection establishment and teardown and gives
// every connection a bounded outbound queue; a peer that cannot drain its
// queue is disconnected rather than buffered without bound.
package transport
