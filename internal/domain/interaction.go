package domain

// ReplyFlavor selects the tone of a colony interaction reply.
type ReplyFlavor string

const (
	FlavorRoast    ReplyFlavor = "roast"
	FlavorAgree    ReplyFlavor = "agree"
	FlavorCounter  ReplyFlavor = "counter"
	FlavorFlex     ReplyFlavor = "flex"
	FlavorQuestion ReplyFlavor = "question"
	FlavorInsight  ReplyFlavor = "insight"
)

// ReplyFlavors lists all flavors; colony picks one at random.
var ReplyFlavors = []ReplyFlavor{
	FlavorRoast, FlavorAgree, FlavorCounter,
	FlavorFlex, FlavorQuestion, FlavorInsight,
}

// Interaction records one colony interaction: responder replied to one
// of target's posts. Corresponds to interactions table in PostgreSQL.
type Interaction struct {
	InteractionID string      // PRIMARY KEY, uuid
	ResponderID   string      // agent that replied
	TargetID      string      // agent whose post was replied to
	TargetPostID  string      // platform id of the target post
	ReplyID       string      // platform id of the reply
	Flavor        ReplyFlavor // chosen reply flavor
	CreatedAt     int64       // record creation timestamp (ms)
}
