// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package usdt defines and fires user-space statically defined tracing (USDT)
probes at run time.

A [Provider] groups probes under a name. Probes are added to an unloaded
provider with their argument types, the provider is loaded, and the probes
are then visible to tracers such as bpftrace, bcc or perf, exactly like
probes compiled into a binary with sys/sdt.h:

	p, err := usdt.NewProvider("myapp")
	if err != nil {
		return err
	}
	defer p.Close()

	event, err := p.AddProbe("event", usdt.IntegerArg, usdt.StringArg)
	if err != nil {
		return err
	}
	if err := p.Load(); err != nil {
		return err
	}

	// bpftrace -e 'usdt:/proc/PID/fd/*:myapp:event { printf("%d %s\n", arg0, str(arg1)); }'
	_, err = event.Fire(42, "hello")

Firing a probe no tracer is attached to is cheap. Arguments that are
expensive to compute can be deferred with a [Producer], which is only called
when a tracer is attached:

	event.FireFunc(func() []any { return []any{n, expensiveString()} })

# Argument types

With the default [Typed] convention, [StringArg], [FloatArg] and
[IntegerArg] arguments are all passed to tracers as unsigned 64-bit values:
a string is the address of a NUL-terminated copy, a float its IEEE-754 bits,
and an integer its two's complement bits. Raw word types such as
[Uint32Arg] or [Int64Arg] pass integers unconverted in a slot of the
declared width. The [Word] convention only allows raw word types.

# Engines

Probes are created by an engine. The default engine loads libstapsdt at run
time. The in-process engine in the memengine package needs no native library
and lets tests attach tracers in-process. See [WithEngine] and [WithEnv].
*/
package usdt
