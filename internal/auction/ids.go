package auction

import "github.com/google/uuid"

// Identifiers are opaque wrapped UUIDs compared by value.

type AuctionID struct{ uuid.UUID }

type ItemID struct{ uuid.UUID }

type BidderID struct{ uuid.UUID }

type SellerID struct{ uuid.UUID }

type OfferID struct{ uuid.UUID }

func NewAuctionID() AuctionID { return AuctionID{uuid.New()} }
func NewItemID() ItemID       { return ItemID{uuid.New()} }
func NewBidderID() BidderID   { return BidderID{uuid.New()} }
func NewSellerID() SellerID   { return SellerID{uuid.New()} }
func NewOfferID() OfferID     { return OfferID{uuid.New()} }

// ParseAuctionID parses a string form of an auction identifier.
func ParseAuctionID(s string) (AuctionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AuctionID{}, err
	}
	return AuctionID{id}, nil
}

// IsZero reports whether the identifier is unset.
func (id AuctionID) IsZero() bool { return id.UUID == uuid.Nil }
func (id ItemID) IsZero() bool    { return id.UUID == uuid.Nil }
func (id BidderID) IsZero() bool  { return id.UUID == uuid.Nil }
func (id SellerID) IsZero() bool  { return id.UUID == uuid.Nil }
func (id OfferID) IsZero() bool   { return id.UUID == uuid.Nil }
