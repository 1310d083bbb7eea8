package contracts

// Interface definitions of the booking ledger contracts. Only the members the
// client reads, writes or decodes are listed.

// RegistryABI is the top-level directory of properties, keyed by manager.
const RegistryABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "name", "type": "string"},
			{"name": "description", "type": "string"}
		],
		"name": "registerHotel",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "index", "type": "uint256"}],
		"name": "removeHotel",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "index", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		],
		"name": "callHotel",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "manager", "type": "address"}],
		"name": "getHotelsByManager",
		"outputs": [{"name": "", "type": "address[]"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "getHotels",
		"outputs": [{"name": "", "type": "address[]"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "LifToken",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "name": "hotel", "type": "address"},
			{"indexed": false, "name": "managerIndex", "type": "uint256"}
		],
		"name": "HotelRegistered",
		"type": "event"
	}
]`

// PropertyABI is a single property. Mutations are only accepted from the
// registry; book and bookWithLif only through the property's own two-phase call.
const PropertyABI = `[
	{"constant": true, "inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "description", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "manager", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "owner", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "lineOne", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "lineTwo", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "zip", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "country", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "created", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "timezone", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "latitude", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "longitude", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "waitConfirmation", "outputs": [{"name": "", "type": "bool"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "getImagesLength", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [{"name": "index", "type": "uint256"}], "name": "images", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "getUnitTypeNames", "outputs": [{"name": "", "type": "bytes32[]"}], "type": "function"},
	{"constant": true, "inputs": [{"name": "unitType", "type": "bytes32"}], "name": "getUnitType", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "getUnitsLength", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [{"name": "index", "type": "uint256"}], "name": "units", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{
		"constant": false,
		"inputs": [
			{"name": "name", "type": "string"},
			{"name": "description", "type": "string"}
		],
		"name": "editInfo",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "lineOne", "type": "string"},
			{"name": "lineTwo", "type": "string"},
			{"name": "zip", "type": "string"},
			{"name": "country", "type": "string"}
		],
		"name": "editAddress",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "timezone", "type": "uint256"},
			{"name": "longitude", "type": "uint256"},
			{"name": "latitude", "type": "uint256"}
		],
		"name": "editLocation",
		"outputs": [],
		"type": "function"
	},
	{"constant": false, "inputs": [{"name": "wait", "type": "bool"}], "name": "changeConfirmation", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "url", "type": "string"}], "name": "addImage", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "index", "type": "uint256"}], "name": "removeImage", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "addr", "type": "address"}], "name": "addUnitType", "outputs": [], "type": "function"},
	{
		"constant": false,
		"inputs": [
			{"name": "unitType", "type": "bytes32"},
			{"name": "index", "type": "uint256"}
		],
		"name": "removeUnitType",
		"outputs": [],
		"type": "function"
	},
	{"constant": false, "inputs": [{"name": "unit", "type": "address"}], "name": "addUnit", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "unit", "type": "address"}], "name": "removeUnit", "outputs": [], "type": "function"},
	{
		"constant": false,
		"inputs": [
			{"name": "unitType", "type": "bytes32"},
			{"name": "data", "type": "bytes"}
		],
		"name": "callUnitType",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "unitAddress", "type": "address"},
			{"name": "data", "type": "bytes"}
		],
		"name": "callUnit",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "unitAddress", "type": "address"},
			{"name": "from", "type": "address"},
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "book",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "unitAddress", "type": "address"},
			{"name": "from", "type": "address"},
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "bookWithLif",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "publicCallData", "type": "bytes"},
			{"name": "privateData", "type": "bytes"}
		],
		"name": "beginCall",
		"outputs": [],
		"type": "function"
	},
	{"constant": false, "inputs": [{"name": "msgDataHash", "type": "bytes32"}], "name": "continueCall", "outputs": [], "type": "function"},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "name": "from", "type": "address"},
			{"indexed": false, "name": "unit", "type": "address"},
			{"indexed": false, "name": "fromDay", "type": "uint256"},
			{"indexed": false, "name": "daysAmount", "type": "uint256"}
		],
		"name": "Book",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "name": "from", "type": "address"},
			{"indexed": false, "name": "dataHash", "type": "bytes32"}
		],
		"name": "CallStarted",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "name": "from", "type": "address"},
			{"indexed": false, "name": "dataHash", "type": "bytes32"}
		],
		"name": "CallFinish",
		"type": "event"
	}
]`

// CategoryABI is an inventory category (unit type) owned by a property.
const CategoryABI = `[
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "unitType", "type": "bytes32"}
		],
		"type": "constructor"
	},
	{"constant": true, "inputs": [], "name": "owner", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "unitType", "outputs": [{"name": "", "type": "bytes32"}], "type": "function"},
	{
		"constant": true,
		"inputs": [],
		"name": "getInfo",
		"outputs": [
			{"name": "description", "type": "string"},
			{"name": "minGuests", "type": "uint256"},
			{"name": "maxGuests", "type": "uint256"},
			{"name": "price", "type": "string"}
		],
		"type": "function"
	},
	{"constant": true, "inputs": [], "name": "getAmenities", "outputs": [{"name": "", "type": "uint256[]"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "getImagesLength", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [{"name": "index", "type": "uint256"}], "name": "images", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{
		"constant": false,
		"inputs": [
			{"name": "description", "type": "string"},
			{"name": "minGuests", "type": "uint256"},
			{"name": "maxGuests", "type": "uint256"},
			{"name": "price", "type": "string"}
		],
		"name": "edit",
		"outputs": [],
		"type": "function"
	},
	{"constant": false, "inputs": [{"name": "amenity", "type": "uint256"}], "name": "addAmenity", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "amenity", "type": "uint256"}], "name": "removeAmenity", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "url", "type": "string"}], "name": "addImage", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "index", "type": "uint256"}], "name": "removeImage", "outputs": [], "type": "function"}
]`

// UnitABI is a bookable unit with its sparse calendar.
const UnitABI = `[
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "unitType", "type": "bytes32"}
		],
		"type": "constructor"
	},
	{"constant": true, "inputs": [], "name": "owner", "outputs": [{"name": "", "type": "address"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "active", "outputs": [{"name": "", "type": "bool"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "unitType", "outputs": [{"name": "", "type": "bytes32"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "defaultPrice", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "defaultLifPrice", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "currencyCode", "outputs": [{"name": "", "type": "bytes8"}], "type": "function"},
	{
		"constant": true,
		"inputs": [{"name": "day", "type": "uint256"}],
		"name": "getReservation",
		"outputs": [
			{"name": "specialPrice", "type": "uint256"},
			{"name": "specialLifPrice", "type": "uint256"},
			{"name": "bookedBy", "type": "address"}
		],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "getCost",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "getLifCost",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{"constant": false, "inputs": [{"name": "active", "type": "bool"}], "name": "setActive", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "price", "type": "uint256"}], "name": "setDefaultPrice", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "price", "type": "uint256"}], "name": "setDefaultLifPrice", "outputs": [], "type": "function"},
	{"constant": false, "inputs": [{"name": "code", "type": "bytes8"}], "name": "setCurrencyCode", "outputs": [], "type": "function"},
	{
		"constant": false,
		"inputs": [
			{"name": "price", "type": "uint256"},
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "setSpecialPrice",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "price", "type": "uint256"},
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "setSpecialLifPrice",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "fromDay", "type": "uint256"},
			{"name": "daysAmount", "type": "uint256"}
		],
		"name": "book",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// TokenABI is the ERC20 booking token with its approve-and-call extension.
const TokenABI = `[
	{"constant": true, "inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "totalSupply", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "type": "function"},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		],
		"name": "approveData",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": true, "name": "spender", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Approval",
		"type": "event"
	}
]`
