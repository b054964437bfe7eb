package irc

// Numeric replies used by the server. Names follow RFC 1459/2812.
const (
	RPL_WELCOME  = 1
	RPL_YOURHOST = 2
	RPL_CREATED  = 3

	RPL_AWAY          = 301
	RPL_USERHOST      = 302
	RPL_ISON          = 303
	RPL_UNAWAY        = 305
	RPL_NOWAWAY       = 306
	RPL_WHOISREGNICK  = 307
	RPL_WHOISUSER     = 311
	RPL_WHOISSERVER   = 312
	RPL_WHOISOPERATOR = 313
	RPL_WHOWASUSER    = 314
	RPL_ENDOFWHO      = 315
	RPL_WHOISIDLE     = 317
	RPL_ENDOFWHOIS    = 318
	RPL_WHOISCHANNELS = 319
	RPL_LISTSTART     = 321
	RPL_LIST          = 322
	RPL_LISTEND       = 323
	RPL_CHANNELMODEIS = 324
	RPL_NOTOPIC       = 331
	RPL_TOPIC         = 332
	RPL_TOPICSET      = 333
	RPL_INVITING      = 341
	RPL_VERSION       = 351
	RPL_WHOREPLY      = 352
	RPL_NAMREPLY      = 353
	RPL_ENDOFNAMES    = 366
	RPL_ENDOFWHOWAS   = 369
	RPL_MOTD          = 372
	RPL_MOTDSTART     = 375
	RPL_ENDOFMOTD     = 376
	RPL_YOUREOPER     = 381
	RPL_REHASHING     = 382
	RPL_TIME          = 391

	RPL_UMODEIS     = 221
	RPL_STATSUPTIME = 242
	RPL_ENDOFSTATS  = 219

	ERR_NOSUCHNICK       = 401
	ERR_NOSUCHSERVER     = 402
	ERR_NOSUCHCHANNEL    = 403
	ERR_CANNOTSENDTOCHAN = 404
	ERR_WASNOSUCHNICK    = 406
	ERR_TOOMANYTARGETS   = 407
	ERR_NOORIGIN         = 409
	ERR_NORECIPIENT      = 411
	ERR_NOTEXTTOSEND     = 412
	ERR_UNKNOWNCOMMAND   = 421
	ERR_NOMOTD           = 422
	ERR_NONICKNAMEGIVEN  = 431
	ERR_ERRONEUSNICKNAME = 432
	ERR_NICKNAMEINUSE    = 433
	ERR_USERNOTINCHANNEL = 441
	ERR_NOTONCHANNEL     = 442
	ERR_USERONCHANNEL    = 443
	ERR_SUMMONDISABLED   = 445
	ERR_USERSDISABLED    = 446
	ERR_NOTREGISTERED    = 451
	ERR_NEEDMOREPARAMS   = 461
	ERR_ALREADYREGISTRED = 462
	ERR_PASSWDMISMATCH   = 464
	ERR_KEYSET           = 467
	ERR_CHANNELISFULL    = 471
	ERR_UNKNOWNMODE      = 472
	ERR_INVITEONLYCHAN   = 473
	ERR_BANNEDFROMCHAN   = 474
	ERR_BADCHANNELKEY    = 475
	ERR_NOPRIVILEGES     = 481
	ERR_CHANOPRIVSNEEDED = 482
	ERR_UMODEUNKNOWNFLAG = 501
	ERR_USERSDONTMATCH   = 502
)
