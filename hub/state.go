package hub

import "github.com/pubhubs/pubhubs-core/envelope"

func sealHubState(key envelope.SealingKey, state HubState) ([]byte, error) {
	sealed, err := envelope.Seal(key, hubStatePurpose, state)
	if err != nil {
		return nil, err
	}
	return sealed.Bytes(), nil
}

func openHubState(key envelope.SealingKey, raw []byte) (HubState, error) {
	sealed, err := envelope.SealedFromBytes[HubState](raw)
	if err != nil {
		return HubState{}, err
	}
	return sealed.Open(key, hubStatePurpose)
}
