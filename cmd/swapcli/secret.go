package main

import (
	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/urfave/cli"
)

var secretCommand = cli.Command{
	Name:  "secret",
	Usage: "generate secrets and hashlocks",
	Description: `
	Generates a random secret and its hashlock. With --segments a
	sequence of secrets for an ordered partial order is generated,
	together with the merkle root and the proof of every segment.`,
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "segments",
			Usage: "the number of segments of the sequence",
		},
	},
	Action: newSecret,
}

type segmentResp struct {
	Index    uint32   `json:"index"`
	Secret   string   `json:"secret"`
	Hashlock string   `json:"hashlock"`
	Proof    []string `json:"proof"`
}

type sequenceResp struct {
	MerkleRoot string         `json:"merkle_root"`
	Segments   []*segmentResp `json:"segments"`
}

func newSecret(ctx *cli.Context) error {
	if !ctx.IsSet("segments") {
		secret, err := hashlock.NewSecret()
		if err != nil {
			return err
		}

		printResp(ctx, map[string]string{
			"secret":   secret.String(),
			"hashlock": hashlock.Hash(secret).String(),
		})

		return nil
	}

	seq, err := hashlock.NewSecretSequence(uint32(ctx.Uint("segments")))
	if err != nil {
		return err
	}

	resp := &sequenceResp{MerkleRoot: seq.Root.String()}
	for i := range seq.Secrets {
		index := uint32(i)

		proof, err := seq.Proof(index)
		if err != nil {
			return err
		}

		segment := &segmentResp{
			Index:    index,
			Secret:   seq.Secrets[i].String(),
			Hashlock: seq.Hashlocks[i].String(),
		}
		for _, p := range proof {
			segment.Proof = append(segment.Proof, p.String())
		}

		resp.Segments = append(resp.Segments, segment)
	}

	printResp(ctx, resp)

	return nil
}
