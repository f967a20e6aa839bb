package mqttv5

import "errors"

// PropertyContext identifies which control packet (or will-message properties
// block) a Properties value is attached to, so ValidateFor can enforce the
// "legal only in an enumerated set of packets" rule from the MQTT v5.0 spec.
type PropertyContext byte

const (
	PropCtxCONNECT PropertyContext = iota
	PropCtxCONNACK
	PropCtxPUBLISH
	PropCtxPUBACK
	PropCtxPUBREC
	PropCtxPUBREL
	PropCtxPUBCOMP
	PropCtxSUBSCRIBE
	PropCtxSUBACK
	PropCtxUNSUBSCRIBE
	PropCtxUNSUBACK
	PropCtxDISCONNECT
	PropCtxAUTH
	PropCtxWILL
)

// ErrPropertyNotAllowed indicates a property appeared in a packet that does
// not admit it. MQTT v5.0 spec: malformed/protocol error on decode.
var ErrPropertyNotAllowed = errors.New("property not allowed for this packet")

// propertiesAllowed maps each property to the packet contexts it may appear in.
var propertiesAllowed = map[PropertyID][]PropertyContext{
	PropPayloadFormatIndicator:   {PropCtxPUBLISH, PropCtxWILL},
	PropMessageExpiryInterval:    {PropCtxPUBLISH, PropCtxWILL},
	PropContentType:              {PropCtxPUBLISH, PropCtxWILL},
	PropResponseTopic:            {PropCtxPUBLISH, PropCtxWILL},
	PropCorrelationData:          {PropCtxPUBLISH, PropCtxWILL},
	PropSubscriptionIdentifier:   {PropCtxPUBLISH, PropCtxSUBSCRIBE},
	PropSessionExpiryInterval:    {PropCtxCONNECT, PropCtxCONNACK, PropCtxDISCONNECT},
	PropAssignedClientIdentifier: {PropCtxCONNACK},
	PropServerKeepAlive:          {PropCtxCONNACK},
	PropAuthenticationMethod:     {PropCtxCONNECT, PropCtxCONNACK, PropCtxAUTH},
	PropAuthenticationData:       {PropCtxCONNECT, PropCtxCONNACK, PropCtxAUTH},
	PropRequestProblemInfo:       {PropCtxCONNECT},
	PropWillDelayInterval:        {PropCtxWILL},
	PropRequestResponseInfo:      {PropCtxCONNECT},
	PropResponseInformation:      {PropCtxCONNACK},
	PropServerReference:          {PropCtxCONNACK, PropCtxDISCONNECT},
	PropReasonString: {
		PropCtxCONNACK, PropCtxPUBACK, PropCtxPUBREC, PropCtxPUBREL, PropCtxPUBCOMP,
		PropCtxSUBACK, PropCtxUNSUBACK, PropCtxDISCONNECT, PropCtxAUTH,
	},
	PropReceiveMaximum:    {PropCtxCONNECT, PropCtxCONNACK},
	PropTopicAliasMaximum: {PropCtxCONNECT, PropCtxCONNACK},
	PropTopicAlias:        {PropCtxPUBLISH},
	PropMaximumQoS:        {PropCtxCONNACK},
	PropRetainAvailable:   {PropCtxCONNACK},
	PropUserProperty: {
		PropCtxCONNECT, PropCtxCONNACK, PropCtxPUBLISH, PropCtxPUBACK, PropCtxPUBREC,
		PropCtxPUBREL, PropCtxPUBCOMP, PropCtxSUBSCRIBE, PropCtxSUBACK, PropCtxUNSUBSCRIBE,
		PropCtxUNSUBACK, PropCtxDISCONNECT, PropCtxAUTH, PropCtxWILL,
	},
	PropMaximumPacketSize:       {PropCtxCONNECT, PropCtxCONNACK},
	PropWildcardSubAvailable:    {PropCtxCONNACK},
	PropSubscriptionIDAvailable: {PropCtxCONNACK},
	PropSharedSubAvailable:      {PropCtxCONNACK},
}

// duplicatesAllowed lists the properties MQTT v5.0 permits to repeat within
// one properties block (user_property and subscription_identifier).
var duplicatesAllowed = map[PropertyID]bool{
	PropUserProperty:           true,
	PropSubscriptionIdentifier: true,
}

// ValidateFor checks that every property in p is legal for ctx and that
// non-repeatable properties appear at most once.
func (p *Properties) ValidateFor(ctx PropertyContext) error {
	if p == nil {
		return nil
	}

	seen := make(map[PropertyID]bool, len(p.props))
	for i := range p.props {
		id := p.props[i].id

		allowed := propertiesAllowed[id]
		ok := false
		for _, c := range allowed {
			if c == ctx {
				ok = true
				break
			}
		}
		if !ok {
			return ErrPropertyNotAllowed
		}

		if seen[id] && !duplicatesAllowed[id] {
			return ErrDuplicateProperty
		}
		seen[id] = true
	}

	return nil
}
