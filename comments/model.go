package comments

// Stored attribute names.
const (
	attrCommentID    = "comment_id"
	attrItemID       = "item_id"
	attrCommentText  = "comment_text"
	attrDatetime     = "datetime"
	attrVersionID    = "version_id"
	attrResponses    = "responses"
	attrResponseID   = "response_id"
	attrResponseText = "response_text"
)

// Comment is one comment document. Responses are positions within the
// document, addressed by ResponseID.
type Comment struct {
	CommentID   string     `dynamodbav:"comment_id" json:"comment_id"`
	ItemID      string     `dynamodbav:"item_id" json:"item_id"`
	CommenterID string     `dynamodbav:"commenter_id" json:"commenter_id"`
	CommentText string     `dynamodbav:"comment_text" json:"comment_text"`
	Datetime    string     `dynamodbav:"datetime" json:"datetime"`
	VersionID   string     `dynamodbav:"version_id" json:"version_id"`
	Responses   []Response `dynamodbav:"responses" json:"responses"`
}

// Response is an element of a comment's embedded response list. Its
// VersionID is independent of the parent comment's.
type Response struct {
	ResponseID   string `dynamodbav:"response_id" json:"response_id"`
	ResponderID  string `dynamodbav:"responder_id" json:"responder_id"`
	ResponseText string `dynamodbav:"response_text" json:"response_text"`
	Datetime     string `dynamodbav:"datetime" json:"datetime"`
	VersionID    string `dynamodbav:"version_id" json:"version_id"`
}

// responseIndex returns the current position of responseID, or -1.
// Positions shift whenever a response is removed, so an index is only
// meaningful for the read it came from.
func (c *Comment) responseIndex(responseID string) int {
	for i, r := range c.Responses {
		if r.ResponseID == responseID {
			return i
		}
	}
	return -1
}
