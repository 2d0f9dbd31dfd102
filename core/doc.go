// Package core contains the connector's canonical domain contracts: the
// inbound event shapes, the unified downstream request, configuration, and
// the error envelope policy. Pipeline stages and adapters depend on this
// package; core must not depend on transport or downstream specifics.
package core
