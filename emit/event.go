package emit

// Actor identifies which kind of actor produced an Event.
type Actor string

const (
	ActorSupervisor Actor = "supervisor"
	ActorWorker     Actor = "worker"
	ActorReducer    Actor = "reducer"
	ActorSigint     Actor = "sigint"
)

// Event is a single observable state transition in the reduction search:
// a reducer spawning or exhausting, a candidate being judged, a new
// smallest being adopted, an actor reporting an error.
type Event struct {
	// Actor is the kind of actor that produced this event.
	Actor Actor

	// ActorID identifies the specific actor instance (worker index,
	// reducer provenance, ...). Empty for process-wide events.
	ActorID string

	// Msg is a short, stable event name: "spawned", "exhausted",
	// "errored" (reducer); "judged_interesting", "judged_not_interesting",
	// "merge_worthwhile", "merge_not_worthwhile" (worker);
	// "reducer_exhausted", "reducer_errored", "worker_not_interesting",
	// "worker_errored", "new_smallest", "interesting_not_smallest",
	// "merge_not_worthwhile" (supervisor).
	Msg string

	// Fields carries event-specific structured data: provenance,
	// commit_id, size, error, and so on.
	Fields map[string]interface{}
}
