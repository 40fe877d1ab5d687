// Package engine runs the autonomous build pipeline. Opportunities are
// queued, admitted by the Scheduler under a concurrency cap, advanced
// through their phases by progress timers, and handed to the Deployer once
// they are ready for approval. The Orchestrator wires these together and
// owns every background timer.
package engine
