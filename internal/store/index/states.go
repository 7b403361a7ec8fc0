package index

// WhereState is the phantom type parameter tracking whether a mutating
// builder has its WHERE clause yet. Exec is callable in either state; an
// UPDATE or DELETE without a WHERE clause compiles, and its SQL build
// returns ErrWhereRequired at run time.
type WhereState interface{ whereState() }

type WithWhere struct{}
type WithoutWhere struct{}

func (WithWhere) whereState()    {}
func (WithoutWhere) whereState() {}
